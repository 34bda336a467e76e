package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/recipe-room/internal/service"
)

// BookmarkHandler serves the caller's saved recipes.
type BookmarkHandler struct {
	bookmarks *service.BookmarkService
	logger    *slog.Logger
}

func NewBookmarkHandler(bookmarks *service.BookmarkService, logger *slog.Logger) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks, logger: logger}
}

type bookmarkRequest struct {
	RecipeID string `json:"recipe_id"`
}

// HTTP: GET /api/bookmarks
func (h *BookmarkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	list, err := h.bookmarks.ListBookmarks(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCreate bookmarks the recipe named in the body.
//
// HTTP: POST /api/bookmarks
// REQUEST BODY: {"recipe_id": "..."}
func (h *BookmarkHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.bookmark(w, r, req.RecipeID)
}

// HandleBookmarkRecipe bookmarks the recipe in the path.
//
// HTTP: POST /api/recipes/{id}/bookmark
func (h *BookmarkHandler) HandleBookmarkRecipe(w http.ResponseWriter, r *http.Request) {
	h.bookmark(w, r, urlParam(r, "id"))
}

func (h *BookmarkHandler) bookmark(w http.ResponseWriter, r *http.Request, recipeID string) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	b, err := h.bookmarks.BookmarkRecipe(r.Context(), userID, recipeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// HTTP: DELETE /api/bookmarks/{id}
func (h *BookmarkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.bookmarks.DeleteBookmark(r.Context(), userID, urlParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: DELETE /api/recipes/{id}/bookmark
func (h *BookmarkHandler) HandleUnbookmarkRecipe(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.bookmarks.Unbookmark(r.Context(), userID, urlParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CommentHandler serves recipe comments. Only the author may edit or
// delete a comment.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// HTTP: GET /api/recipes/{id}/comments
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.comments.ListComments(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: POST /api/comments
// REQUEST BODY: {"recipe_id": "...", "text": "..."}
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.CreateCommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.comments.CreateComment(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HTTP: PUT /api/comments/{id}
// REQUEST BODY: {"text": "..."}
func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.UpdateCommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.comments.UpdateComment(r.Context(), userID, urlParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HTTP: DELETE /api/comments/{id}
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.comments.DeleteComment(r.Context(), userID, urlParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
