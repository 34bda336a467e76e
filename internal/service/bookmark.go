package service

import (
	"context"
	"log/slog"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/model"
	"github.com/sakif/recipe-room/internal/repository"
)

type BookmarkService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewBookmarkService(store repository.Store, logger *slog.Logger) *BookmarkService {
	return &BookmarkService{store: store, logger: logger}
}

// BookmarkRecipe saves recipeID for userID. The recipe must exist;
// bookmarking it twice is a Conflict.
func (s *BookmarkService) BookmarkRecipe(ctx context.Context, userID, recipeID string) (*model.Bookmark, error) {
	if recipeID == "" {
		return nil, apperror.ValidationFailed("recipe_id", "recipe_id is required")
	}
	if _, err := s.store.GetRecipe(ctx, recipeID); err != nil {
		return nil, err
	}
	b := &model.Bookmark{UserID: userID, RecipeID: recipeID}
	if err := s.store.CreateBookmark(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookmarkService) ListBookmarks(ctx context.Context, userID string) ([]model.BookmarkView, error) {
	return s.store.ListBookmarks(ctx, userID)
}

// DeleteBookmark removes a bookmark by id. Only its owner may.
func (s *BookmarkService) DeleteBookmark(ctx context.Context, userID, bookmarkID string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		b, err := tx.GetBookmark(ctx, bookmarkID)
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return apperror.Forbidden("only the bookmark owner can remove it")
		}
		return tx.DeleteBookmark(ctx, bookmarkID)
	})
}

// Unbookmark removes userID's bookmark of recipeID, NotFound if there is none.
func (s *BookmarkService) Unbookmark(ctx context.Context, userID, recipeID string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		b, err := tx.GetBookmarkByRecipe(ctx, userID, recipeID)
		if err != nil {
			return err
		}
		return tx.DeleteBookmark(ctx, b.ID)
	})
}
