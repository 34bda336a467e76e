package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/auth"
	"github.com/sakif/recipe-room/internal/service"
)

// GroupHandler serves groups, memberships and group recipe lists.
type GroupHandler struct {
	groups *service.GroupService
	logger *slog.Logger
}

func NewGroupHandler(groups *service.GroupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, logger: logger}
}

// setAdminRequest is the body of the admin toggle. IsAdmin is a pointer
// so a missing value is rejected rather than read as false.
type setAdminRequest struct {
	IsAdmin *bool `json:"is_admin"`
}

// HandleList returns every group with the caller's membership flags.
//
// HTTP: GET /api/groups
func (h *GroupHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.ListGroups(r.Context(), auth.ViewerFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// HandleListMine returns the caller's groups.
//
// HTTP: GET /api/my-groups
func (h *GroupHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	groups, err := h.groups.ListMyGroups(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// HTTP: GET /api/groups/{id}
func (h *GroupHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	group, err := h.groups.GetGroup(r.Context(), auth.ViewerFromContext(r.Context()), urlParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// HandleCreate creates a group with the caller as its first admin.
//
// HTTP: POST /api/groups
// REQUEST BODY: {"name": "...", "description": "..."}
func (h *GroupHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.CreateGroupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	group, err := h.groups.CreateGroup(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// HTTP: PUT /api/groups/{id}
func (h *GroupHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.UpdateGroupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	group, err := h.groups.UpdateGroup(r.Context(), userID, urlParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// HTTP: DELETE /api/groups/{id}
func (h *GroupHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.groups.DeleteGroup(r.Context(), userID, urlParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: POST /api/groups/{id}/join
func (h *GroupHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	m, err := h.groups.JoinGroup(r.Context(), userID, urlParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HTTP: DELETE /api/groups/{id}/leave
func (h *GroupHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.groups.LeaveGroup(r.Context(), userID, urlParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /api/groups/{id}/members
func (h *GroupHandler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	members, err := h.groups.ListMembers(r.Context(), userID, urlParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// HandleSetAdmin promotes or demotes a member.
//
// HTTP: PUT /api/groups/{id}/members/{userID}/admin
// REQUEST BODY: {"is_admin": true}
func (h *GroupHandler) HandleSetAdmin(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req setAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.IsAdmin == nil {
		writeError(w, h.logger, apperror.ValidationFailed("is_admin", "is_admin is required"))
		return
	}

	m, err := h.groups.SetAdmin(r.Context(), userID, urlParam(r, "id"), urlParam(r, "userID"), *req.IsAdmin)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HTTP: DELETE /api/groups/{id}/members/{userID}
func (h *GroupHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.groups.RemoveMember(r.Context(), userID, urlParam(r, "id"), urlParam(r, "userID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRecipes lists the recipes shared into the group. Members only.
//
// HTTP: GET /api/groups/{id}/recipes
func (h *GroupHandler) HandleRecipes(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	recipes, err := h.groups.ListGroupRecipes(r.Context(), userID, urlParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}
