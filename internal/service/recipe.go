package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/model"
	"github.com/sakif/recipe-room/internal/repository"
	"github.com/sakif/recipe-room/internal/storage"
	"github.com/sakif/recipe-room/internal/validation"
)

// searchCandidates caps how many substring hits are ranked per search.
const searchCandidates = 100

type CreateRecipeInput struct {
	Title        string  `json:"title" validate:"notblank,max=100"`
	Description  string  `json:"description" validate:"notblank"`
	Ingredients  string  `json:"ingredients" validate:"notblank"`
	Instructions string  `json:"instructions" validate:"notblank"`
	Country      *string `json:"country" validate:"omitnil,max=50"`
	ServingSize  *int    `json:"serving_size" validate:"omitnil,gt=0"`
	// GroupID nil or "" creates a personal recipe.
	GroupID *string `json:"group_id"`
}

// UpdateRecipeInput is a partial update: nil fields keep their value.
type UpdateRecipeInput struct {
	Title        *string `json:"title" validate:"omitnil,notblank,max=100"`
	Description  *string `json:"description" validate:"omitnil,notblank"`
	Ingredients  *string `json:"ingredients" validate:"omitnil,notblank"`
	Instructions *string `json:"instructions" validate:"omitnil,notblank"`
	Country      *string `json:"country" validate:"omitnil,max=50"`
	ServingSize  *int    `json:"serving_size" validate:"omitnil,gt=0"`
	GroupID      GroupRef `json:"group_id"`
}

// GroupRef is the group_id of an update request, which has three states:
//
//	absent          → Set == false, association untouched
//	null or ""      → Set == true, ID == nil, recipe becomes personal
//	"<group id>"    → Set == true, ID != nil, recipe moves into that group
type GroupRef struct {
	Set bool
	ID  *string
}

func (g *GroupRef) UnmarshalJSON(b []byte) error {
	g.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		g.ID = nil
		return nil
	}
	var id string
	if err := json.Unmarshal(b, &id); err != nil {
		return apperror.ValidationFailed("group_id", "group_id must be a string or null")
	}
	g.ID = trimmed(&id)
	return nil
}

// RecipeService owns recipes and their images.
type RecipeService struct {
	store  repository.Store
	images storage.ImageStore
	agg    *Aggregator
	logger *slog.Logger
}

// NewRecipeService takes a nil images store when uploads are disabled.
func NewRecipeService(store repository.Store, images storage.ImageStore, logger *slog.Logger) *RecipeService {
	return &RecipeService{
		store:  store,
		images: images,
		agg:    NewAggregator(store),
		logger: logger,
	}
}

// CreateRecipe stores a recipe owned by userID. Sharing it into a group
// requires membership of that group; the check and the insert share a
// transaction so a Forbidden leaves no row behind.
func (s *RecipeService) CreateRecipe(ctx context.Context, userID string, in CreateRecipeInput) (*model.RecipeView, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	r := &model.Recipe{
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Ingredients:  strings.TrimSpace(in.Ingredients),
		Instructions: strings.TrimSpace(in.Instructions),
		Country:      trimmed(in.Country),
		ServingSize:  in.ServingSize,
		UserID:       userID,
		GroupID:      trimmed(in.GroupID),
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if r.GroupID != nil {
			if err := NewAuthorizer(tx).RequireMember(ctx, userID, *r.GroupID); err != nil {
				return err
			}
		}
		return tx.CreateRecipe(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("recipe created", slog.String("recipe_id", r.ID), slog.String("user_id", userID))
	return s.view(ctx, model.AuthenticatedViewer(userID), *r)
}

func (s *RecipeService) GetRecipe(ctx context.Context, viewer model.Viewer, recipeID string) (*model.RecipeView, error) {
	r, err := s.store.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, viewer, *r)
}

// ListRecipes returns recipes newest first, optionally filtered by exact
// country, minimum average rating and serving size.
func (s *RecipeService) ListRecipes(ctx context.Context, viewer model.Viewer, filter model.RecipeFilter) ([]model.RecipeView, error) {
	if filter.MinRating != nil && !(*filter.MinRating >= 0 && *filter.MinRating <= 5) {
		return nil, apperror.ValidationFailed("min_rating", "min_rating must be between 0 and 5")
	}
	if filter.ServingSize != nil && *filter.ServingSize <= 0 {
		return nil, apperror.ValidationFailed("serving_size", "serving_size must be greater than 0")
	}
	filter.Country = strings.TrimSpace(filter.Country)

	recipes, err := s.store.ListRecipes(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.agg.RecipeViews(ctx, viewer, recipes)
}

// SearchRecipes finds recipes whose title, description or ingredients
// contain query (case-insensitive). Fuzzy title matches come first, best
// match first; the rest follow newest first.
func (s *RecipeService) SearchRecipes(ctx context.Context, viewer model.Viewer, query string) ([]model.RecipeView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}

	candidates, err := s.store.SearchRecipes(ctx, query, searchCandidates)
	if err != nil {
		return nil, err
	}
	return s.agg.RecipeViews(ctx, viewer, rankByTitle(query, candidates))
}

// rankByTitle orders candidates by fuzzy title score. Candidates whose
// title does not match keep their incoming (recency) order after them.
func rankByTitle(query string, candidates []model.Recipe) []model.Recipe {
	titles := make([]string, len(candidates))
	for i, r := range candidates {
		titles[i] = r.Title
	}

	ranked := make([]model.Recipe, 0, len(candidates))
	seen := make([]bool, len(candidates))
	for _, m := range fuzzy.Find(query, titles) {
		ranked = append(ranked, candidates[m.Index])
		seen[m.Index] = true
	}
	for i, r := range candidates {
		if !seen[i] {
			ranked = append(ranked, r)
		}
	}
	return ranked
}

// UpdateRecipe is owner only. Moving the recipe into a different group
// requires membership of the target group; clearing the group never does.
func (s *RecipeService) UpdateRecipe(ctx context.Context, userID, recipeID string, in UpdateRecipeInput) (*model.RecipeView, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	var updated *model.Recipe
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		r, err := ownedRecipe(ctx, tx, userID, recipeID)
		if err != nil {
			return err
		}

		if in.GroupID.Set {
			if in.GroupID.ID != nil && !sameGroup(r.GroupID, in.GroupID.ID) {
				if err := NewAuthorizer(tx).RequireMember(ctx, userID, *in.GroupID.ID); err != nil {
					return err
				}
			}
			r.GroupID = in.GroupID.ID
		}
		if in.Title != nil {
			r.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			r.Description = strings.TrimSpace(*in.Description)
		}
		if in.Ingredients != nil {
			r.Ingredients = strings.TrimSpace(*in.Ingredients)
		}
		if in.Instructions != nil {
			r.Instructions = strings.TrimSpace(*in.Instructions)
		}
		if in.Country != nil {
			r.Country = trimmed(in.Country)
		}
		if in.ServingSize != nil {
			r.ServingSize = in.ServingSize
		}

		if err := tx.UpdateRecipe(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, model.AuthenticatedViewer(userID), *updated)
}

// DeleteRecipe is owner only. Ratings, bookmarks and comments are removed
// with the recipe.
func (s *RecipeService) DeleteRecipe(ctx context.Context, userID, recipeID string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := ownedRecipe(ctx, tx, userID, recipeID); err != nil {
			return err
		}
		return tx.DeleteRecipe(ctx, recipeID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("recipe deleted", slog.String("recipe_id", recipeID), slog.String("user_id", userID))
	return nil
}

// UploadRecipeImage stores the image and points the recipe at it. Owner
// only. If the upload fails image_url is left unchanged.
func (s *RecipeService) UploadRecipeImage(ctx context.Context, userID, recipeID string, up storage.Upload) (*model.RecipeView, error) {
	var updated *model.Recipe
	_, err := uploadImage(ctx, s.store, s.images, s.logger, storage.RecipeFolder, userID, up,
		func(ctx context.Context, store repository.Store) error {
			_, err := ownedRecipe(ctx, store, userID, recipeID)
			return err
		},
		func(ctx context.Context, tx repository.Store, url string) error {
			r, err := ownedRecipe(ctx, tx, userID, recipeID)
			if err != nil {
				return err
			}
			r.ImageURL = &url
			if err := tx.UpdateRecipe(ctx, r); err != nil {
				return err
			}
			updated = r
			return nil
		})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, model.AuthenticatedViewer(userID), *updated)
}

func (s *RecipeService) view(ctx context.Context, viewer model.Viewer, r model.Recipe) (*model.RecipeView, error) {
	v, err := s.agg.RecipeView(ctx, viewer, r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ownedRecipe loads the recipe and returns Forbidden unless userID owns it.
func ownedRecipe(ctx context.Context, store repository.RecipeRepository, userID, recipeID string) (*model.Recipe, error) {
	r, err := store.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, apperror.Forbidden("only the recipe owner can do this")
	}
	return r, nil
}

func sameGroup(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
