package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/model"
)

const userColumns = `id, username, email, password_hash, profile_image, github_id, created_at`

// CreateUser inserts a new user, filling in ID and CreatedAt.
//
// Uniqueness of username, email and github_id is enforced by the schema;
// a violation comes back as apperror.ErrConflict naming the clashing field.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.ProfileImage,
		user.GitHubID,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return userConflict(err)
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}
	return nil
}

// userConflict picks a message based on which UNIQUE index fired.
// SQLite names the column in the error text ("UNIQUE constraint failed: users.email").
func userConflict(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return apperror.Conflict("username already taken")
	case strings.Contains(msg, "users.email"):
		return apperror.Conflict("email already registered")
	case strings.Contains(msg, "users.github_id"):
		return apperror.Conflict("GitHub account already linked")
	}
	return apperror.Conflict("user already exists")
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, err := scanUser(db.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return u, nil
}

func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := db.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username: %w", err)
	}
	return n > 0, nil
}

// UpdateUserProfileImage sets (or clears, with nil) the profile image URL.
func (db *DB) UpdateUserProfileImage(ctx context.Context, userID string, imageURL *string) error {
	res, err := db.q.ExecContext(ctx,
		`UPDATE users SET profile_image = ? WHERE id = ?`, imageURL, userID)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile image for %s: %w", userID, err)
	}
	return expectOneRow(res, "user", userID)
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.ProfileImage,
		&u.GitHubID,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
