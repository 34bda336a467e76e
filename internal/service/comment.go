package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/model"
	"github.com/sakif/recipe-room/internal/repository"
	"github.com/sakif/recipe-room/internal/validation"
)

type CreateCommentInput struct {
	RecipeID string `json:"recipe_id" validate:"required"`
	Text     string `json:"text" validate:"notblank,max=2000"`
}

type UpdateCommentInput struct {
	Text string `json:"text" validate:"notblank,max=2000"`
}

// CommentService manages comments. Only a comment's author may edit or
// delete it; neither the recipe owner nor a group admin can.
type CommentService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewCommentService(store repository.Store, logger *slog.Logger) *CommentService {
	return &CommentService{store: store, logger: logger}
}

func (s *CommentService) CreateComment(ctx context.Context, userID string, in CreateCommentInput) (*model.Comment, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetRecipe(ctx, in.RecipeID); err != nil {
		return nil, err
	}
	c := &model.Comment{
		Text:     strings.TrimSpace(in.Text),
		UserID:   userID,
		RecipeID: in.RecipeID,
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments returns the recipe's comments oldest first.
func (s *CommentService) ListComments(ctx context.Context, recipeID string) ([]model.CommentView, error) {
	if _, err := s.store.GetRecipe(ctx, recipeID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, recipeID)
}

func (s *CommentService) UpdateComment(ctx context.Context, userID, commentID string, in UpdateCommentInput) (*model.Comment, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	var updated *model.Comment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		c, err := authoredComment(ctx, tx, userID, commentID)
		if err != nil {
			return err
		}
		c.Text = strings.TrimSpace(in.Text)
		if err := tx.UpdateComment(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := authoredComment(ctx, tx, userID, commentID); err != nil {
			return err
		}
		return tx.DeleteComment(ctx, commentID)
	})
}

func authoredComment(ctx context.Context, store repository.CommentRepository, userID, commentID string) (*model.Comment, error) {
	c, err := store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, apperror.Forbidden("only the comment author can do this")
	}
	return c, nil
}
