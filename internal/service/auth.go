package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/auth"
	"github.com/sakif/recipe-room/internal/model"
	"github.com/sakif/recipe-room/internal/repository"
	"github.com/sakif/recipe-room/internal/storage"
	"github.com/sakif/recipe-room/internal/validation"
)

type RegisterInput struct {
	Username string `json:"username" validate:"notblank,min=3,max=80"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// AuthResult bundles the user and the issued JWT so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// AuthService handles accounts: password registration and login, GitHub
// sign-in, and the profile image.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	store     repository.Store
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	images    storage.ImageStore
	logger    *slog.Logger
}

// NewAuthService wires the account rules. images may be nil when uploads
// are not configured.
func NewAuthService(
	store repository.Store,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	images storage.ImageStore,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		images:    images,
		logger:    logger,
	}
}

// Register creates a password account and signs it in. A taken username
// or email is a Conflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return s.issue(user)
}

// Login checks the password. Every failure (unknown user, wrong password,
// account without a password) is the same Unauthorized so the response
// does not reveal which usernames exist.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	invalid := apperror.Unauthorized("incorrect username or password")

	user, err := s.store.GetUserByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, invalid
	}
	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("password verification failed",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, invalid
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub signs in the account linked to the GitHub id,
// creating it on first sign-in. The username is the GitHub login, with a
// numeric suffix when that name is already taken.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user, err := s.store.GetUserByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
		s.logger.Info("user authenticated via GitHub", slog.String("user_id", user.ID))
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, err
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		username, err := availableUsername(ctx, tx, gh.Login)
		if err != nil {
			return err
		}
		email := strings.ToLower(strings.TrimSpace(gh.Email))
		if email == "" {
			email = fmt.Sprintf("%d+%s@users.noreply.github.com", gh.ID, gh.Login)
		}
		ghID := gh.ID
		user = &model.User{
			Username: username,
			Email:    email,
			GitHubID: &ghID,
		}
		if gh.AvatarURL != "" {
			avatar := gh.AvatarURL
			user.ProfileImage = &avatar
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered via GitHub", slog.String("user_id", user.ID))
	return s.issue(user)
}

var usernameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// availableUsername returns base, or base-2, base-3, ... for the first
// name not in use.
func availableUsername(ctx context.Context, users repository.UserRepository, login string) (string, error) {
	base := usernameUnsafe.ReplaceAllString(login, "")
	if len(base) < 3 {
		base = "chef-" + base
	}
	if len(base) > 70 {
		base = base[:70]
	}

	candidate := base
	for i := 2; i < 100; i++ {
		taken, err := users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return base + "-" + xid.New().String(), nil
}

// GetUserByID backs GET /api/auth/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	return s.store.GetUserByID(ctx, id)
}

// UploadProfileImage stores the image and sets it as userID's profile
// image. A failed upload leaves the previous image in place.
func (s *AuthService) UploadProfileImage(ctx context.Context, userID string, up storage.Upload) (*model.User, error) {
	_, err := uploadImage(ctx, s.store, s.images, s.logger, storage.ProfileFolder, userID, up,
		func(ctx context.Context, store repository.Store) error {
			_, err := store.GetUserByID(ctx, userID)
			return err
		},
		func(ctx context.Context, tx repository.Store, url string) error {
			return tx.UpdateUserProfileImage(ctx, userID, &url)
		})
	if err != nil {
		return nil, err
	}
	return s.store.GetUserByID(ctx, userID)
}

// TokenTTL is the lifetime of issued tokens, for the cookie Max-Age.
func (s *AuthService) TokenTTL() int {
	return int(s.tokens.TTL().Seconds())
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
