package service

import (
	"context"
	"log/slog"

	"github.com/sakif/recipe-room/internal/model"
	"github.com/sakif/recipe-room/internal/repository"
	"github.com/sakif/recipe-room/internal/validation"
)

type RateInput struct {
	Value int `json:"value" validate:"min=1,max=5"`
}

// RatingResult is the new rating plus the recipe's refreshed aggregate.
type RatingResult struct {
	Rating        *model.Rating `json:"rating"`
	AverageRating *float64      `json:"average_rating"`
	RatingCount   int           `json:"rating_count"`
}

// RatingService records ratings. Ratings are write-once: there is no
// update and no delete.
type RatingService struct {
	store  repository.Store
	agg    *Aggregator
	logger *slog.Logger
}

func NewRatingService(store repository.Store, logger *slog.Logger) *RatingService {
	return &RatingService{store: store, agg: NewAggregator(store), logger: logger}
}

// RateRecipe stores userID's rating. A second rating for the same recipe
// is a Conflict from UNIQUE(user_id, recipe_id); the first one stands.
func (s *RatingService) RateRecipe(ctx context.Context, userID, recipeID string, in RateInput) (*RatingResult, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	r := &model.Rating{Value: in.Value, UserID: userID, RecipeID: recipeID}
	if err := s.store.CreateRating(ctx, r); err != nil {
		return nil, err
	}

	avg, count, err := s.agg.ratingStats(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("recipe rated", slog.String("recipe_id", recipeID), slog.Int("value", in.Value))
	return &RatingResult{Rating: r, AverageRating: avg, RatingCount: count}, nil
}

// RatingSummary is a recipe's average as one viewer sees it.
type RatingSummary struct {
	RecipeID      string   `json:"recipe_id"`
	AverageRating *float64 `json:"average_rating"`
	UserRating    *int     `json:"user_rating"`
}

// Summary returns the average (nil when unrated) and, for a signed-in
// viewer, their own rating.
func (s *RatingService) Summary(ctx context.Context, viewer model.Viewer, recipeID string) (*RatingSummary, error) {
	if _, err := s.store.GetRecipe(ctx, recipeID); err != nil {
		return nil, err
	}
	avg, err := s.agg.AverageRating(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	sum := &RatingSummary{RecipeID: recipeID, AverageRating: avg}
	if viewer.IsAuthenticated() {
		if sum.UserRating, err = s.agg.RatingByUser(ctx, recipeID, viewer.UserID); err != nil {
			return nil, err
		}
	}
	return sum, nil
}
