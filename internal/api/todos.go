package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/cexll/tasksync/internal/service"
	"github.com/cexll/tasksync/internal/store"
)

// dateLayouts are the accepted forms of start_date and end_date.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// flexTime decodes either a full RFC 3339 timestamp or a plain date.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string")
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse date %q", s)
}

func (t *flexTime) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

type todoRequest struct {
	Task        *string         `json:"task"`
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	IsCompleted *bool           `json:"is_completed"`
	Priority    *store.Priority `json:"priority"`
	StartDate   *flexTime       `json:"start_date"`
	EndDate     *flexTime       `json:"end_date"`
	ClearDates  bool            `json:"clear_dates"`
}

// task prefers "task" and falls back to "name", which older clients send.
func (req todoRequest) task() *string {
	if req.Task != nil {
		return req.Task
	}
	return req.Name
}

func (h *Handler) todos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.svc.TodosForList(r.Context(), currentUser(r), mux.Vars(r)["list_id"])
	if err != nil {
		h.writeError(w, r, "Failed to fetch todos", err)
		return
	}
	writeJSON(w, http.StatusOK, "Todos fetched", toTodos(todos))
}

func (h *Handler) createTodo(w http.ResponseWriter, r *http.Request) {
	var req todoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	in := service.TodoInput{
		Task:        deref(req.task()),
		Description: deref(req.Description),
		StartDate:   req.StartDate.ptr(),
		EndDate:     req.EndDate.ptr(),
	}
	if req.Priority != nil {
		in.Priority = *req.Priority
	}
	todo, err := h.svc.CreateTodo(r.Context(), currentUser(r), mux.Vars(r)["list_id"], in)
	if err != nil {
		h.writeError(w, r, "Failed to create todo", err)
		return
	}
	writeJSON(w, http.StatusCreated, "Todo created", toTodo(todo))
}

func (h *Handler) getTodo(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	todo, err := h.svc.GetTodo(r.Context(), currentUser(r), vars["list_id"], vars["task_id"])
	if err != nil {
		h.writeError(w, r, "Failed to fetch todo", err)
		return
	}
	writeJSON(w, http.StatusOK, "Todo fetched", toTodo(todo))
}

func (h *Handler) updateTodo(w http.ResponseWriter, r *http.Request) {
	var req todoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "Invalid request", err)
		return
	}
	vars := mux.Vars(r)
	todo, err := h.svc.UpdateTodo(r.Context(), currentUser(r), vars["list_id"], vars["task_id"], service.TodoPatch{
		Task:        req.task(),
		Description: req.Description,
		IsCompleted: req.IsCompleted,
		Priority:    req.Priority,
		StartDate:   req.StartDate.ptr(),
		EndDate:     req.EndDate.ptr(),
		ClearDates:  req.ClearDates,
	})
	if err != nil {
		h.writeError(w, r, "Failed to update todo", err)
		return
	}
	writeJSON(w, http.StatusOK, "Todo updated", toTodo(todo))
}

func (h *Handler) toggleTodo(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	todo, err := h.svc.ToggleTodo(r.Context(), currentUser(r), vars["list_id"], vars["task_id"])
	if err != nil {
		h.writeError(w, r, "Failed to toggle todo", err)
		return
	}
	writeJSON(w, http.StatusOK, "Todo toggled", toTodo(todo))
}

func (h *Handler) deleteTodo(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.DeleteTodo(r.Context(), currentUser(r), vars["list_id"], vars["task_id"]); err != nil {
		h.writeError(w, r, "Failed to delete todo", err)
		return
	}
	writeJSON(w, http.StatusOK, "Todo deleted", map[string]string{"id": vars["task_id"]})
}
