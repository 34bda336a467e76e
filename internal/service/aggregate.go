package service

import (
	"context"
	"math"

	"github.com/sakif/recipe-room/internal/model"
	"github.com/sakif/recipe-room/internal/repository"
)

type aggregateStore interface {
	repository.RatingRepository
	repository.MembershipRepository
}

// Aggregator derives read-time values: rating averages, the caller's own
// rating, member counts and the viewer's membership flags. Nothing it
// returns is stored; every call recomputes from the rows.
type Aggregator struct {
	store aggregateStore
	authz *Authorizer
}

func NewAggregator(store repository.Store) *Aggregator {
	return &Aggregator{store: store, authz: NewAuthorizer(store)}
}

// AverageRating is the mean of the recipe's ratings rounded to two
// decimals, or nil when nobody has rated it. Never 0 for "no ratings".
func (a *Aggregator) AverageRating(ctx context.Context, recipeID string) (*float64, error) {
	avg, _, err := a.ratingStats(ctx, recipeID)
	return avg, err
}

// RatingByUser returns nil for anonymous callers and for users who have
// not rated the recipe.
func (a *Aggregator) RatingByUser(ctx context.Context, recipeID, userID string) (*int, error) {
	if userID == "" {
		return nil, nil
	}
	return a.store.GetUserRating(ctx, recipeID, userID)
}

func (a *Aggregator) MemberCount(ctx context.Context, groupID string) (int, error) {
	return a.store.CountMembers(ctx, groupID)
}

func (a *Aggregator) RecipeView(ctx context.Context, viewer model.Viewer, r model.Recipe) (model.RecipeView, error) {
	avg, count, err := a.ratingStats(ctx, r.ID)
	if err != nil {
		return model.RecipeView{}, err
	}
	var mine *int
	if viewer.IsAuthenticated() {
		if mine, err = a.RatingByUser(ctx, r.ID, viewer.UserID); err != nil {
			return model.RecipeView{}, err
		}
	}
	return model.RecipeView{
		Recipe:        r,
		AverageRating: avg,
		RatingCount:   count,
		UserRating:    mine,
	}, nil
}

func (a *Aggregator) RecipeViews(ctx context.Context, viewer model.Viewer, recipes []model.Recipe) ([]model.RecipeView, error) {
	views := make([]model.RecipeView, 0, len(recipes))
	for _, r := range recipes {
		v, err := a.RecipeView(ctx, viewer, r)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// GroupView adds the member count and, for a signed-in viewer, whether
// they are a member and an admin. Anonymous viewers get false for both.
func (a *Aggregator) GroupView(ctx context.Context, viewer model.Viewer, g model.Group) (model.GroupView, error) {
	count, err := a.MemberCount(ctx, g.ID)
	if err != nil {
		return model.GroupView{}, err
	}
	var member, admin bool
	if viewer.IsAuthenticated() {
		if member, admin, err = a.authz.membership(ctx, viewer.UserID, g.ID); err != nil {
			return model.GroupView{}, err
		}
	}
	return model.GroupView{
		Group:               g,
		MemberCount:         count,
		CurrentUserIsMember: member,
		CurrentUserIsAdmin:  admin,
	}, nil
}

func (a *Aggregator) GroupViews(ctx context.Context, viewer model.Viewer, groups []model.Group) ([]model.GroupView, error) {
	views := make([]model.GroupView, 0, len(groups))
	for _, g := range groups {
		v, err := a.GroupView(ctx, viewer, g)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (a *Aggregator) ratingStats(ctx context.Context, recipeID string) (*float64, int, error) {
	avg, count, err := a.store.RatingStats(ctx, recipeID)
	if err != nil || avg == nil {
		return nil, count, err
	}
	rounded := roundTo2(*avg)
	return &rounded, count, nil
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
