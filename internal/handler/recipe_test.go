package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipe-room/internal/handler"
	"github.com/sakif/recipe-room/internal/model"
	"github.com/sakif/recipe-room/internal/service"
)

func newRecipeBody(title string) map[string]any {
	return map[string]any{
		"title":        title,
		"description":  "weeknight dinner",
		"ingredients":  "rice, peppers",
		"instructions": "simmer",
	}
}

func (s *stack) createRecipe(t *testing.T, userID string, body map[string]any) model.RecipeView {
	t.Helper()
	rr := serve(s.recipes.HandleCreate, request(t, http.MethodPost, "/api/recipes", userID, body))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.RecipeView](t, rr)
}

func TestRecipeHandler_CreateAndGet(t *testing.T) {
	s := newStack(t)
	alice := s.register(t, "alice")

	created := s.createRecipe(t, alice, newRecipeBody("Jollof"))
	assert.Equal(t, "Jollof", created.Title)
	assert.Nil(t, created.AverageRating)

	rr := serve(s.recipes.HandleGet, request(t, http.MethodGet, "/api/recipes/"+created.ID, "", nil, "id", created.ID))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created.ID, decode[model.RecipeView](t, rr).ID)

	rr = serve(s.recipes.HandleGet, request(t, http.MethodGet, "/api/recipes/nope", "", nil, "id", "nope"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRecipeHandler_CreateValidation(t *testing.T) {
	s := newStack(t)
	alice := s.register(t, "alice")

	body := newRecipeBody("")
	rr := serve(s.recipes.HandleCreate, request(t, http.MethodPost, "/api/recipes", alice, body))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "title", decode[handler.ErrorResponse](t, rr).Field)
}

func TestRecipeHandler_ListFilters(t *testing.T) {
	s := newStack(t)
	alice := s.register(t, "alice")

	ghana := newRecipeBody("Waakye")
	ghana["country"] = "Ghana"
	s.createRecipe(t, alice, ghana)
	s.createRecipe(t, alice, newRecipeBody("Toast"))

	tests := []struct {
		query      string
		wantStatus int
		wantCount  int
	}{
		{"", http.StatusOK, 2},
		{"?country=Ghana", http.StatusOK, 1},
		{"?limit=1", http.StatusOK, 1},
		{"?min_rating=abc", http.StatusBadRequest, 0},
		{"?min_rating=7", http.StatusBadRequest, 0},
		{"?serving_size=0", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := serve(s.recipes.HandleList, request(t, http.MethodGet, "/api/recipes"+tt.query, "", nil))

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.Len(t, decode[[]model.RecipeView](t, rr), tt.wantCount)
			}
		})
	}
}

func TestRecipeHandler_ListRejectsNonFiniteRating(t *testing.T) {
	s := newStack(t)
	alice := s.register(t, "alice")
	s.createRecipe(t, alice, newRecipeBody("Toast"))

	for _, raw := range []string{"NaN", "nan", "Inf", "-Inf", "%2BInf", "infinity"} {
		t.Run(raw, func(t *testing.T) {
			rr := serve(s.recipes.HandleList, request(t, http.MethodGet, "/api/recipes?min_rating="+raw, "", nil))

			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Equal(t, "min_rating", decode[handler.ErrorResponse](t, rr).Field)
		})
	}
}

func TestRecipeHandler_ListEmptyIsArray(t *testing.T) {
	s := newStack(t)

	rr := serve(s.recipes.HandleList, request(t, http.MethodGet, "/api/recipes", "", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestRecipeHandler_Search(t *testing.T) {
	s := newStack(t)
	alice := s.register(t, "alice")
	s.createRecipe(t, alice, newRecipeBody("Pepper soup"))

	rr := serve(s.recipes.HandleSearch, request(t, http.MethodGet, "/api/recipes/search?q=pepper", "", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.RecipeView](t, rr), 1)

	rr = serve(s.recipes.HandleSearch, request(t, http.MethodGet, "/api/recipes/search", "", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "q", decode[handler.ErrorResponse](t, rr).Field)
}

func TestRecipeHandler_UpdateAndDeleteAreOwnerOnly(t *testing.T) {
	s := newStack(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	r := s.createRecipe(t, alice, newRecipeBody("Stew"))

	rr := serve(s.recipes.HandleUpdate, request(t, http.MethodPut, "/api/recipes/"+r.ID, bob,
		map[string]any{"title": "Bob's"}, "id", r.ID))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(s.recipes.HandleUpdate, request(t, http.MethodPut, "/api/recipes/"+r.ID, alice,
		map[string]any{"title": "Beef stew"}, "id", r.ID))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Beef stew", decode[model.RecipeView](t, rr).Title)

	rr = serve(s.recipes.HandleDelete, request(t, http.MethodDelete, "/api/recipes/"+r.ID, bob, nil, "id", r.ID))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(s.recipes.HandleDelete, request(t, http.MethodDelete, "/api/recipes/"+r.ID, alice, nil, "id", r.ID))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRecipeHandler_UpdateGroupNull(t *testing.T) {
	s := newStack(t)
	alice := s.register(t, "alice")

	rr := serve(s.groups.HandleCreate, request(t, http.MethodPost, "/api/groups", alice, map[string]string{"name": "Family"}))
	require.Equal(t, http.StatusCreated, rr.Code)
	g := decode[model.GroupView](t, rr)

	body := newRecipeBody("Shared")
	body["group_id"] = g.ID
	r := s.createRecipe(t, alice, body)
	require.NotNil(t, r.GroupID)

	rr = serve(s.recipes.HandleUpdate, request(t, http.MethodPut, "/api/recipes/"+r.ID, alice,
		`{"group_id": null}`, "id", r.ID))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Nil(t, decode[model.RecipeView](t, rr).GroupID)

	rr = serve(s.recipes.HandleUpdate, request(t, http.MethodPut, "/api/recipes/"+r.ID, alice,
		`{"group_id": 5}`, "id", r.ID))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "group_id", decode[handler.ErrorResponse](t, rr).Field)
}

func TestRecipeHandler_Rate(t *testing.T) {
	s := newStack(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	r := s.createRecipe(t, alice, newRecipeBody("Cake"))

	rate := func(user string, value int) *httptest.ResponseRecorder {
		return serve(s.recipes.HandleRate, request(t, http.MethodPost, "/api/recipes/"+r.ID+"/rate", user,
			map[string]int{"value": value}, "id", r.ID))
	}

	rr := rate(bob, 4)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[service.RatingResult](t, rr)
	require.NotNil(t, res.AverageRating)
	assert.Equal(t, 4.0, *res.AverageRating)

	assert.Equal(t, http.StatusConflict, rate(bob, 2).Code)
	assert.Equal(t, http.StatusBadRequest, rate(alice, 9).Code)

	rr = serve(s.recipes.HandleGet, request(t, http.MethodGet, "/api/recipes/"+r.ID, bob, nil, "id", r.ID))
	view := decode[model.RecipeView](t, rr)
	require.NotNil(t, view.UserRating)
	assert.Equal(t, 4, *view.UserRating)
}

func TestRecipeHandler_RatingSummary(t *testing.T) {
	s := newStack(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	r := s.createRecipe(t, alice, newRecipeBody("Cake"))

	summary := func(user, id string) *httptest.ResponseRecorder {
		return serve(s.recipes.HandleRatingSummary, request(t, http.MethodGet, "/", user, nil, "id", id))
	}

	rr := summary("", r.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"recipe_id":"`+r.ID+`","average_rating":null,"user_rating":null}`, rr.Body.String())

	serve(s.recipes.HandleRate, request(t, http.MethodPost, "/", bob, map[string]int{"value": 5}, "id", r.ID))

	sum := decode[service.RatingSummary](t, summary(bob, r.ID))
	require.NotNil(t, sum.AverageRating)
	assert.Equal(t, 5.0, *sum.AverageRating)
	require.NotNil(t, sum.UserRating)
	assert.Equal(t, 5, *sum.UserRating)

	assert.Equal(t, http.StatusNotFound, summary("", "missing").Code)
}

func TestRecipeHandler_UploadImage(t *testing.T) {
	s := newStack(t)
	alice := s.register(t, "alice")
	r := s.createRecipe(t, alice, newRecipeBody("Pizza"))

	body, ct := multipartImage(t, "image", "pizza.webp", []byte("webp"))
	req := withContext(httptest.NewRequest(http.MethodPost, "/api/recipes/"+r.ID+"/upload-image", body), alice, "id", r.ID)
	req.Header.Set("Content-Type", ct)

	rr := serve(s.recipes.HandleUploadImage, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	view := decode[model.RecipeView](t, rr)
	require.NotNil(t, view.ImageURL)
	assert.Contains(t, *view.ImageURL, "/recipes/"+alice+"/")
}
