package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cexll/tasksync/internal/service"
)

type groupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type memberRequest struct {
	UserID string `json:"user_id"`
	ID     string `json:"id"`
	Email  string `json:"email"`
	RoleID string `json:"role_id"`
	Role   string `json:"role"`
}

// userID accepts "user_id" or a bare "id", the shape of a user object.
func (req memberRequest) userID() string {
	if req.UserID != "" {
		return req.UserID
	}
	return req.ID
}

func (req memberRequest) role() service.RoleRef {
	return service.RoleRef{ID: req.RoleID, Name: req.Role}
}

func (h *Handler) roles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.svc.Roles(r.Context())
	if err != nil {
		h.writeError(w, r, "Failed to fetch roles", err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRole(role))
	}
	writeJSON(w, http.StatusOK, "Roles fetched", out)
}

func (h *Handler) groups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.GroupsForUser(r.Context(), currentUser(r))
	if err != nil {
		h.writeError(w, r, "Failed to fetch groups", err)
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupSummary(g))
	}
	writeJSON(w, http.StatusOK, "Groups fetched", out)
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	group, err := h.svc.CreateGroup(r.Context(), currentUser(r), deref(req.Name), deref(req.Description))
	if err != nil {
		h.writeError(w, r, "Failed to create group", err)
		return
	}
	writeJSON(w, http.StatusCreated, "Group created", toGroup(group))
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GroupDetails(r.Context(), currentUser(r), mux.Vars(r)["group_id"])
	if err != nil {
		h.writeError(w, r, "Failed to fetch group", err)
		return
	}
	writeJSON(w, http.StatusOK, "Group fetched", toGroupDetail(detail))
}

func (h *Handler) updateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	group, err := h.svc.UpdateGroup(r.Context(), currentUser(r), mux.Vars(r)["group_id"], service.GroupPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, r, "Failed to update group", err)
		return
	}
	writeJSON(w, http.StatusOK, "Group updated", toGroup(group))
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["group_id"]
	if err := h.svc.DeleteGroup(r.Context(), currentUser(r), groupID); err != nil {
		h.writeError(w, r, "Failed to delete group", err)
		return
	}
	writeJSON(w, http.StatusOK, "Group deleted", map[string]string{"id": groupID})
}

func (h *Handler) myRole(w http.ResponseWriter, r *http.Request) {
	m, role, err := h.svc.MyRole(r.Context(), currentUser(r), mux.Vars(r)["group_id"])
	if err != nil {
		h.writeError(w, r, "Failed to fetch role", err)
		return
	}
	writeJSON(w, http.StatusOK, "Role fetched", map[string]any{
		"group_id": m.GroupID,
		"user_id":  m.UserID,
		"role":     toRole(role),
	})
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	member, err := h.svc.InviteMember(r.Context(), currentUser(r), mux.Vars(r)["group_id"], service.InviteInput{
		UserID: req.userID(),
		Email:  req.Email,
		Role:   req.role(),
	})
	if err != nil {
		h.writeError(w, r, "Failed to invite user", err)
		return
	}
	writeJSON(w, http.StatusCreated, "User invited", toMember(member))
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	m, err := h.svc.ChangeMemberRole(r.Context(), currentUser(r), mux.Vars(r)["group_id"], req.userID(), req.role())
	if err != nil {
		h.writeError(w, r, "Failed to change role", err)
		return
	}
	writeJSON(w, http.StatusOK, "Role updated", toMembership(m))
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.RemoveMember(r.Context(), currentUser(r), vars["group_id"], vars["user_id"]); err != nil {
		h.writeError(w, r, "Failed to remove member", err)
		return
	}
	writeJSON(w, http.StatusOK, "Member removed", map[string]string{
		"group_id": vars["group_id"],
		"user_id":  vars["user_id"],
	})
}
