package service

import (
	"context"
	"strings"
	"time"

	"github.com/cexll/tasksync/internal/store"
)

// TodoInput describes a new todo item.
type TodoInput struct {
	Task        string
	Description string
	Priority    store.Priority
	StartDate   *time.Time
	EndDate     *time.Time
}

// TodoPatch carries optional changes. Pointers distinguish "unset" from
// zero values such as IsCompleted=false.
type TodoPatch struct {
	Task        *string
	Description *string
	IsCompleted *bool
	Priority    *store.Priority
	StartDate   *time.Time
	EndDate     *time.Time
	ClearDates  bool
}

func parsePriority(p store.Priority) (store.Priority, error) {
	p = store.Priority(strings.ToLower(strings.TrimSpace(string(p))))
	if p == "" {
		return store.PriorityNormal, nil
	}
	if !p.Valid() {
		return "", invalid("priority", "priority must be one of low, medium, high, normal, urgent, critical")
	}
	return p, nil
}

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return invalid("end_date", "end date must not be before start date")
	}
	return nil
}

// CreateTodo adds an item to a list the caller can edit.
func (s *Service) CreateTodo(ctx context.Context, userID, listID string, in TodoInput) (store.Todo, error) {
	if _, _, err := s.requireList(ctx, userID, listID, store.PermEdit, "add items to this todo list"); err != nil {
		return store.Todo{}, err
	}
	task := strings.TrimSpace(in.Task)
	if task == "" {
		return store.Todo{}, invalid("task", "task is required")
	}
	priority, err := parsePriority(in.Priority)
	if err != nil {
		return store.Todo{}, err
	}
	if err := checkDates(in.StartDate, in.EndDate); err != nil {
		return store.Todo{}, err
	}

	todo, err := s.store.CreateTodo(ctx, store.Todo{
		ListID:      listID,
		Task:        task,
		Description: strings.TrimSpace(in.Description),
		Priority:    priority,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	})
	return todo, wrapNotFound(err, "todo list")
}

// TodosForList returns a list's items in creation order.
func (s *Service) TodosForList(ctx context.Context, userID, listID string) ([]store.Todo, error) {
	if _, _, err := s.listAccess(ctx, userID, listID); err != nil {
		return nil, err
	}
	todos, err := s.store.TodosForList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []store.Todo{}
	}
	return todos, nil
}

func (s *Service) GetTodo(ctx context.Context, userID, listID, todoID string) (store.Todo, error) {
	if _, _, err := s.listAccess(ctx, userID, listID); err != nil {
		return store.Todo{}, err
	}
	todo, err := s.store.GetTodo(ctx, listID, todoID)
	return todo, wrapNotFound(err, "todo item")
}

// UpdateTodo applies a patch to an item.
func (s *Service) UpdateTodo(ctx context.Context, userID, listID, todoID string, patch TodoPatch) (store.Todo, error) {
	if _, _, err := s.requireList(ctx, userID, listID, store.PermEdit, "edit items in this todo list"); err != nil {
		return store.Todo{}, err
	}
	todo, err := s.store.GetTodo(ctx, listID, todoID)
	if err != nil {
		return store.Todo{}, wrapNotFound(err, "todo item")
	}

	if patch.Task != nil {
		task := strings.TrimSpace(*patch.Task)
		if task == "" {
			return store.Todo{}, invalid("task", "task cannot be empty")
		}
		todo.Task = task
	}
	if patch.Description != nil {
		todo.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.IsCompleted != nil {
		todo.IsCompleted = *patch.IsCompleted
	}
	if patch.Priority != nil {
		p, err := parsePriority(*patch.Priority)
		if err != nil {
			return store.Todo{}, err
		}
		todo.Priority = p
	}
	if patch.ClearDates {
		todo.StartDate, todo.EndDate = nil, nil
	}
	if patch.StartDate != nil {
		todo.StartDate = patch.StartDate
	}
	if patch.EndDate != nil {
		todo.EndDate = patch.EndDate
	}
	if err := checkDates(todo.StartDate, todo.EndDate); err != nil {
		return store.Todo{}, err
	}

	updated, err := s.store.UpdateTodo(ctx, todo)
	return updated, wrapNotFound(err, "todo item")
}

// ToggleTodo flips an item's completion state.
func (s *Service) ToggleTodo(ctx context.Context, userID, listID, todoID string) (store.Todo, error) {
	if _, _, err := s.requireList(ctx, userID, listID, store.PermEdit, "edit items in this todo list"); err != nil {
		return store.Todo{}, err
	}
	todo, err := s.store.GetTodo(ctx, listID, todoID)
	if err != nil {
		return store.Todo{}, wrapNotFound(err, "todo item")
	}
	todo.IsCompleted = !todo.IsCompleted
	updated, err := s.store.UpdateTodo(ctx, todo)
	return updated, wrapNotFound(err, "todo item")
}

func (s *Service) DeleteTodo(ctx context.Context, userID, listID, todoID string) error {
	if _, _, err := s.requireList(ctx, userID, listID, store.PermDeleteTodo, "delete items in this todo list"); err != nil {
		return err
	}
	return wrapNotFound(s.store.DeleteTodo(ctx, listID, todoID), "todo item")
}
