package localstore

import (
	"github.com/cexll/tasksync/internal/client"
)

func findTodo(l *client.TodoList, todoID string) int {
	for i := range l.TodoItems {
		if l.TodoItems[i].ID == todoID {
			return i
		}
	}
	return -1
}

// AddTodo appends a todo to a list, minting a local id when it has none.
func (s *Store) AddTodo(listID string, t client.Todo) (client.Todo, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.Lists[listID]
	if !ok {
		return client.Todo{}, "", ErrListNotFound
	}
	if t.ID == "" {
		t.ID = NewLocalID()
	}
	if t.Priority == "" {
		t.Priority = "normal"
	}
	now := s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.ListID = listID

	opID := s.begin(Operation{Kind: OpAddTodo, ListID: listID, TodoID: t.ID}, []string{listID}, nil)
	l.TodoItems = append(l.TodoItems, t)
	l.TodoItemsCount++
	if t.IsCompleted {
		l.CompletedCount++
	}
	return t, opID, nil
}

// UpdateTodo applies a patch to one todo.
func (s *Store) UpdateTodo(listID, todoID string, patch client.TodoPatch) (client.Todo, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.Lists[listID]
	if !ok {
		return client.Todo{}, "", ErrListNotFound
	}
	i := findTodo(l, todoID)
	if i < 0 {
		return client.Todo{}, "", ErrTodoNotFound
	}
	opID := s.begin(Operation{Kind: OpUpdateTodo, ListID: listID, TodoID: todoID}, []string{listID}, nil)

	t := &l.TodoItems[i]
	if patch.Task != nil {
		t.Task = *patch.Task
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.ClearDates {
		t.StartDate, t.EndDate = nil, nil
	}
	if patch.StartDate != nil {
		t.StartDate = cloneTime(patch.StartDate)
	}
	if patch.EndDate != nil {
		t.EndDate = cloneTime(patch.EndDate)
	}
	if patch.IsCompleted != nil && *patch.IsCompleted != t.IsCompleted {
		setCompleted(l, t, *patch.IsCompleted)
	}
	t.UpdatedAt = s.now()
	return *t, opID, nil
}

// ToggleTodo flips a todo's completion.
func (s *Store) ToggleTodo(listID, todoID string) (client.Todo, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.Lists[listID]
	if !ok {
		return client.Todo{}, "", ErrListNotFound
	}
	i := findTodo(l, todoID)
	if i < 0 {
		return client.Todo{}, "", ErrTodoNotFound
	}
	opID := s.begin(Operation{Kind: OpToggleTodo, ListID: listID, TodoID: todoID}, []string{listID}, nil)
	t := &l.TodoItems[i]
	setCompleted(l, t, !t.IsCompleted)
	t.UpdatedAt = s.now()
	return *t, opID, nil
}

// DeleteTodo removes one todo.
func (s *Store) DeleteTodo(listID, todoID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.Lists[listID]
	if !ok {
		return "", ErrListNotFound
	}
	i := findTodo(l, todoID)
	if i < 0 {
		return "", ErrTodoNotFound
	}
	opID := s.begin(Operation{Kind: OpDeleteTodo, ListID: listID, TodoID: todoID}, []string{listID}, nil)
	if l.TodoItems[i].IsCompleted && l.CompletedCount > 0 {
		l.CompletedCount--
	}
	l.TodoItems = append(l.TodoItems[:i], l.TodoItems[i+1:]...)
	if l.TodoItemsCount > 0 {
		l.TodoItemsCount--
	}
	return opID, nil
}

func setCompleted(l *client.TodoList, t *client.Todo, done bool) {
	t.IsCompleted = done
	if done {
		l.CompletedCount++
	} else if l.CompletedCount > 0 {
		l.CompletedCount--
	}
}
