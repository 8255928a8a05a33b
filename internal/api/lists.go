package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cexll/tasksync/internal/service"
	"github.com/cexll/tasksync/internal/store"
)

type listRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	GroupID     *string `json:"group_id"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Handler) lists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.svc.ListsForUser(r.Context(), currentUser(r))
	if err != nil {
		h.writeError(w, r, "Failed to fetch lists", err)
		return
	}
	writeJSON(w, http.StatusOK, "Lists fetched", toLists(lists))
}

func (h *Handler) createList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	in := service.ListInput{
		Name:        deref(req.Name),
		Description: deref(req.Description),
		Color:       deref(req.Color),
	}
	if req.GroupID != nil && *req.GroupID != "" {
		in.GroupID = req.GroupID
	}
	list, err := h.svc.CreateList(r.Context(), currentUser(r), in)
	if err != nil {
		h.writeError(w, r, "Failed to create list", err)
		return
	}
	writeJSON(w, http.StatusCreated, "List created", toList(list))
}

func (h *Handler) getList(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetList(r.Context(), currentUser(r), mux.Vars(r)["list_id"])
	if err != nil {
		h.writeError(w, r, "Failed to fetch list", err)
		return
	}
	writeJSON(w, http.StatusOK, "List fetched", toListDetail(detail))
}

func (h *Handler) updateList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	list, err := h.svc.UpdateList(r.Context(), currentUser(r), mux.Vars(r)["list_id"], service.ListPatch{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		GroupID:     req.GroupID,
	})
	if err != nil {
		h.writeError(w, r, "Failed to update list", err)
		return
	}
	writeJSON(w, http.StatusOK, "List updated", toList(list))
}

func (h *Handler) deleteList(w http.ResponseWriter, r *http.Request) {
	listID := mux.Vars(r)["list_id"]
	if err := h.svc.DeleteList(r.Context(), currentUser(r), listID); err != nil {
		h.writeError(w, r, "Failed to delete list", err)
		return
	}
	writeJSON(w, http.StatusOK, "List deleted", map[string]string{"id": listID})
}

type shareRequest struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Role   store.ShareRole `json:"role"`
}

func (h *Handler) listShares(w http.ResponseWriter, r *http.Request) {
	shares, err := h.svc.SharesForList(r.Context(), currentUser(r), mux.Vars(r)["list_id"])
	if err != nil {
		h.writeError(w, r, "Failed to fetch shares", err)
		return
	}
	writeJSON(w, http.StatusOK, "Shares fetched", toShares(shares))
}

func (h *Handler) shareList(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	share, err := h.svc.ShareList(r.Context(), currentUser(r), mux.Vars(r)["list_id"], service.ShareInput{
		UserID: req.UserID,
		Email:  req.Email,
		Role:   req.Role,
	})
	if err != nil {
		h.writeError(w, r, "Failed to share list", err)
		return
	}
	writeJSON(w, http.StatusCreated, "List shared", toShare(share))
}

func (h *Handler) updateShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	vars := mux.Vars(r)
	share, err := h.svc.UpdateShareRole(r.Context(), currentUser(r), vars["list_id"], vars["user_id"], req.Role)
	if err != nil {
		h.writeError(w, r, "Failed to update share", err)
		return
	}
	writeJSON(w, http.StatusOK, "Share updated", toShare(share))
}

func (h *Handler) unshare(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.Unshare(r.Context(), currentUser(r), vars["list_id"], vars["user_id"]); err != nil {
		h.writeError(w, r, "Failed to remove share", err)
		return
	}
	writeJSON(w, http.StatusOK, "Share removed", map[string]string{
		"todo_list_id": vars["list_id"],
		"user_id":      vars["user_id"],
	})
}
