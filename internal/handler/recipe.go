package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/recipe-room/internal/auth"
	"github.com/sakif/recipe-room/internal/model"
	"github.com/sakif/recipe-room/internal/service"
)

// RecipeHandler serves recipes and their ratings.
//
// Read routes run behind OptionalAuth: the viewer decides whether
// user_rating is filled in. Write routes run behind RequireAuth.
type RecipeHandler struct {
	recipes *service.RecipeService
	ratings *service.RatingService
	logger  *slog.Logger
}

func NewRecipeHandler(recipes *service.RecipeService, ratings *service.RatingService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, ratings: ratings, logger: logger}
}

// HandleList returns recipes newest first.
//
// HTTP: GET /api/recipes?country=Ghana&min_rating=4&serving_size=2&limit=20&offset=0
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := recipeFilter(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	recipes, err := h.recipes.ListRecipes(r.Context(), auth.ViewerFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// HandleSearch runs a text search.
//
// HTTP: GET /api/recipes/search?q=curry
func (h *RecipeHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.SearchRecipes(r.Context(), auth.ViewerFromContext(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// HandleGet returns one recipe.
//
// HTTP: GET /api/recipes/{id}
func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.recipes.GetRecipe(r.Context(), auth.ViewerFromContext(r.Context()), urlParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// HandleCreate stores a new recipe owned by the caller.
//
// HTTP: POST /api/recipes
// REQUEST BODY: {"title": "...", "description": "...", "ingredients": "...",
// "instructions": "...", "country": "...", "serving_size": 4, "group_id": "..."}
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.CreateRecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	recipe, err := h.recipes.CreateRecipe(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

// HandleUpdate applies a partial update. Omitted fields keep their value;
// "group_id": null makes the recipe personal again.
//
// HTTP: PUT /api/recipes/{id}
func (h *RecipeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.UpdateRecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	recipe, err := h.recipes.UpdateRecipe(r.Context(), userID, urlParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// HandleDelete removes the recipe with its ratings, bookmarks and comments.
//
// HTTP: DELETE /api/recipes/{id}
func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.recipes.DeleteRecipe(r.Context(), userID, urlParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadImage sets the recipe image.
//
// HTTP: POST /api/recipes/{id}/upload-image (multipart, field "image" or "file")
func (h *RecipeHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	up, done, err := readUpload(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer done()

	recipe, err := h.recipes.UploadRecipeImage(r.Context(), userID, urlParam(r, "id"), up)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// HandleRate records the caller's one rating for the recipe.
//
// HTTP: POST /api/recipes/{id}/rate
// REQUEST BODY: {"value": 4}
func (h *RecipeHandler) HandleRate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.RateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.ratings.RateRecipe(r.Context(), userID, urlParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleRatingSummary returns the recipe's average and the caller's rating.
//
// HTTP: GET /api/recipes/{id}/rating
func (h *RecipeHandler) HandleRatingSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.ratings.Summary(r.Context(), auth.ViewerFromContext(r.Context()), urlParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func recipeFilter(r *http.Request) (model.RecipeFilter, error) {
	var (
		f   model.RecipeFilter
		err error
	)
	f.Country = r.URL.Query().Get("country")
	if f.MinRating, err = queryFloat(r, "min_rating"); err != nil {
		return f, err
	}
	if f.ServingSize, err = queryInt(r, "serving_size"); err != nil {
		return f, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return f, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return f, err
	}
	if limit != nil {
		f.Limit = *limit
	}
	if offset != nil {
		f.Offset = *offset
	}
	return f, nil
}
