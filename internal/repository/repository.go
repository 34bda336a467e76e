// Package repository declares the persistence contracts the service layer
// depends on.
//
// Services only ever see these interfaces. The concrete implementation lives
// in repository/sqlite; tests may substitute their own.
//
// ERROR CONTRACT:
// Implementations translate storage failures into domain errors:
//   - missing row                       → apperror.ErrNotFound
//   - UNIQUE / PRIMARY KEY violation    → apperror.ErrConflict
//   - FOREIGN KEY violation on insert   → apperror.ErrNotFound (the parent is gone)
//
// Anything else is wrapped with context and surfaces as an internal error.
package repository

import (
	"context"

	"github.com/sakif/recipe-room/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateUserProfileImage(ctx context.Context, userID string, imageURL *string) error
}

type GroupRepository interface {
	CreateGroup(ctx context.Context, group *model.Group) error
	GetGroup(ctx context.Context, id string) (*model.Group, error)
	ListGroups(ctx context.Context) ([]model.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]model.Group, error)
	UpdateGroup(ctx context.Context, group *model.Group) error
	DeleteGroup(ctx context.Context, id string) error
}

// MembershipRepository is the only writer of group_members. Authorization
// decisions are pure reads through GetMembership.
type MembershipRepository interface {
	AddMember(ctx context.Context, m *model.GroupMembership) error
	GetMembership(ctx context.Context, userID, groupID string) (*model.GroupMembership, error)
	SetAdmin(ctx context.Context, userID, groupID string, isAdmin bool) error
	RemoveMember(ctx context.Context, userID, groupID string) error
	ListMembers(ctx context.Context, groupID string) ([]model.MemberView, error)
	CountMembers(ctx context.Context, groupID string) (int, error)
}

type RecipeRepository interface {
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
	GetRecipe(ctx context.Context, id string) (*model.Recipe, error)
	ListRecipes(ctx context.Context, filter model.RecipeFilter) ([]model.Recipe, error)
	SearchRecipes(ctx context.Context, query string, limit int) ([]model.Recipe, error)
	ListRecipesByGroup(ctx context.Context, groupID string) ([]model.Recipe, error)
	UpdateRecipe(ctx context.Context, recipe *model.Recipe) error
	DeleteRecipe(ctx context.Context, id string) error
}

// RatingRepository has no update or delete: ratings are write-once.
type RatingRepository interface {
	CreateRating(ctx context.Context, rating *model.Rating) error
	// RatingStats returns the unrounded mean (nil with no ratings) and count.
	RatingStats(ctx context.Context, recipeID string) (*float64, int, error)
	GetUserRating(ctx context.Context, recipeID, userID string) (*int, error)
}

type BookmarkRepository interface {
	CreateBookmark(ctx context.Context, b *model.Bookmark) error
	GetBookmark(ctx context.Context, id string) (*model.Bookmark, error)
	GetBookmarkByRecipe(ctx context.Context, userID, recipeID string) (*model.Bookmark, error)
	DeleteBookmark(ctx context.Context, id string) error
	ListBookmarks(ctx context.Context, userID string) ([]model.BookmarkView, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, c *model.Comment) error
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	UpdateComment(ctx context.Context, c *model.Comment) error
	DeleteComment(ctx context.Context, id string) error
	ListComments(ctx context.Context, recipeID string) ([]model.CommentView, error)
}

// Store is the full persistence surface plus transactions.
//
// WithTx runs fn against a Store bound to a single transaction. If fn
// returns an error (or panics) every write made through tx is rolled back;
// otherwise the transaction commits. Calling WithTx on a Store that is
// already transactional runs fn in the existing transaction.
type Store interface {
	UserRepository
	GroupRepository
	MembershipRepository
	RecipeRepository
	RatingRepository
	BookmarkRepository
	CommentRepository

	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
