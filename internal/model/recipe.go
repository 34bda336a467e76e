package model

import "time"

// Recipe is the central content entity.
//
// NULLABLE COLUMNS AS POINTERS:
// GroupID, Country, ImageURL and ServingSize are optional. A nil pointer
// encodes to JSON null and maps to SQL NULL, which keeps "not set" distinct
// from the zero value (an empty country string, a serving size of 0).
//
// GroupID == nil means the recipe is personal (no group association).
type Recipe struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Ingredients  string    `json:"ingredients"`
	Instructions string    `json:"instructions"`
	Country      *string   `json:"country"`
	ImageURL     *string   `json:"image_url"`
	ServingSize  *int      `json:"serving_size"`
	UserID       string    `json:"user_id"`
	GroupID      *string   `json:"group_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RecipeView is a recipe decorated with read-time aggregates.
//
// AverageRating is nil when the recipe has no ratings; UserRating is nil for
// anonymous viewers and for viewers who have not rated the recipe.
type RecipeView struct {
	Recipe
	AverageRating *float64 `json:"average_rating"`
	RatingCount   int      `json:"rating_count"`
	UserRating    *int     `json:"user_rating"`
}

// RecipeFilter narrows a recipe listing. Zero values mean "no filter".
type RecipeFilter struct {
	Country     string
	MinRating   *float64
	ServingSize *int
	Limit       int
	Offset      int
}
