package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/model"
)

func TestCreateRecipe_UnknownGroup(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	r := &model.Recipe{
		Title: "t", Description: "d", Ingredients: "i", Instructions: "s",
		UserID: alice.ID, GroupID: ptr("no-such-group"),
	}
	err := db.CreateRecipe(context.Background(), r)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("CreateRecipe() error = %v, want ErrNotFound", err)
	}
}

func TestCreateRecipe_UnknownAuthor(t *testing.T) {
	db := newTestDB(t)
	g := createTestGroup(t, db, "g")

	r := &model.Recipe{
		Title: "t", Description: "d", Ingredients: "i", Instructions: "s",
		UserID: "ghost", GroupID: ptr(g.ID),
	}
	err := db.CreateRecipe(context.Background(), r)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("CreateRecipe() error = %v, want ErrNotFound", err)
	}
	if want := "user not found with id ghost"; err.Error() != want {
		t.Errorf("CreateRecipe() error = %q, want %q", err.Error(), want)
	}
}

func TestUpdateRecipe_RefreshesUpdatedAtOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	r := createTestRecipe(t, db, alice, "before", nil)
	created := r.CreatedAt

	r.Title = "after"
	r.Country = ptr("Italy")
	r.ServingSize = ptr(4)
	if err := db.UpdateRecipe(ctx, r); err != nil {
		t.Fatalf("UpdateRecipe() error = %v", err)
	}

	got, err := db.GetRecipe(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRecipe() error = %v", err)
	}
	if got.Title != "after" {
		t.Errorf("Title = %q, want %q", got.Title, "after")
	}
	if got.Country == nil || *got.Country != "Italy" {
		t.Errorf("Country = %v, want Italy", got.Country)
	}
	if got.ServingSize == nil || *got.ServingSize != 4 {
		t.Errorf("ServingSize = %v, want 4", got.ServingSize)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed: %v -> %v", created, got.CreatedAt)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("UpdatedAt %v before CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}
	if got.UserID != alice.ID {
		t.Errorf("UserID = %q, want %q", got.UserID, alice.ID)
	}
}

func TestListRecipes_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	pasta := createTestRecipe(t, db, alice, "pasta", nil)
	pasta.Country, pasta.ServingSize = ptr("Italy"), ptr(2)
	if err := db.UpdateRecipe(ctx, pasta); err != nil {
		t.Fatalf("UpdateRecipe() error = %v", err)
	}
	tacos := createTestRecipe(t, db, alice, "tacos", nil)
	tacos.Country, tacos.ServingSize = ptr("Mexico"), ptr(4)
	if err := db.UpdateRecipe(ctx, tacos); err != nil {
		t.Fatalf("UpdateRecipe() error = %v", err)
	}
	createTestRecipe(t, db, alice, "unrated", nil)

	if err := db.CreateRating(ctx, &model.Rating{Value: 5, UserID: bob.ID, RecipeID: pasta.ID}); err != nil {
		t.Fatalf("CreateRating() error = %v", err)
	}
	if err := db.CreateRating(ctx, &model.Rating{Value: 2, UserID: bob.ID, RecipeID: tacos.ID}); err != nil {
		t.Fatalf("CreateRating() error = %v", err)
	}

	tests := []struct {
		name   string
		filter model.RecipeFilter
		want   []string
	}{
		{"no filter newest first", model.RecipeFilter{}, []string{"unrated", "tacos", "pasta"}},
		{"country", model.RecipeFilter{Country: "Italy"}, []string{"pasta"}},
		{"serving size", model.RecipeFilter{ServingSize: ptr(4)}, []string{"tacos"}},
		{"min rating excludes unrated", model.RecipeFilter{MinRating: ptr(2.0)}, []string{"tacos", "pasta"}},
		{"min rating high", model.RecipeFilter{MinRating: ptr(4.5)}, []string{"pasta"}},
		{"limit", model.RecipeFilter{Limit: 1}, []string{"unrated"}},
		{"offset", model.RecipeFilter{Limit: 1, Offset: 2}, []string{"pasta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListRecipes(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListRecipes() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Title != tt.want[i] {
					t.Errorf("[%d] Title = %q, want %q", i, got[i].Title, tt.want[i])
				}
			}
		})
	}
}

func TestSearchRecipes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	createTestRecipe(t, db, alice, "Tomato Soup", nil)
	createTestRecipe(t, db, alice, "100% rye", nil)
	createTestRecipe(t, db, alice, "Bread", nil)

	got, err := db.SearchRecipes(ctx, "TOMATO", 0)
	if err != nil {
		t.Fatalf("SearchRecipes() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "Tomato Soup" {
		t.Errorf("SearchRecipes(TOMATO) = %v, want [Tomato Soup]", got)
	}

	// "%" is a literal, not a wildcard.
	got, err = db.SearchRecipes(ctx, "%", 0)
	if err != nil {
		t.Fatalf("SearchRecipes() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "100% rye" {
		t.Errorf("SearchRecipes(%%) = %v, want [100%% rye]", got)
	}

	// Ingredients are searched too; every test recipe has flour.
	got, _ = db.SearchRecipes(ctx, "flour", 0)
	if len(got) != 3 {
		t.Errorf("SearchRecipes(flour) len = %d, want 3", len(got))
	}
}

func TestListRecipesByGroup(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	g := createTestGroup(t, db, "g")

	createTestRecipe(t, db, alice, "in group", &g.ID)
	createTestRecipe(t, db, alice, "personal", nil)

	got, err := db.ListRecipesByGroup(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("ListRecipesByGroup() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "in group" {
		t.Errorf("ListRecipesByGroup() = %v, want [in group]", got)
	}
}
