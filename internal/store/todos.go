package store

import (
	"context"
	"database/sql"
	"fmt"
)

const todoColumns = `id, list_id, task, description, is_completed, start_date, end_date, priority, created_at, updated_at`

func scanTodo(row rowScanner) (Todo, error) {
	var (
		t                Todo
		priority         string
		start, end       sql.NullInt64
		created, updated int64
	)
	if err := row.Scan(&t.ID, &t.ListID, &t.Task, &t.Description, &t.IsCompleted,
		&start, &end, &priority, &created, &updated); err != nil {
		return Todo{}, err
	}
	t.Priority = Priority(priority)
	t.StartDate = fromNullMillis(start)
	t.EndDate = fromNullMillis(end)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

// CreateTodo inserts a todo. An unknown list yields ErrNotFound.
func (s *Store) CreateTodo(ctx context.Context, t Todo) (Todo, error) {
	now := s.timestamp()
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO todos (`+todoColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ListID, t.Task, t.Description, t.IsCompleted,
		nullMillis(t.StartDate), nullMillis(t.EndDate), string(t.Priority),
		toMillis(now), toMillis(now),
	)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return Todo{}, ErrNotFound
		case isUniqueViolation(err):
			return Todo{}, ErrConflict
		}
		return Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return t, nil
}

// GetTodo returns a todo only if it belongs to listID.
func (s *Store) GetTodo(ctx context.Context, listID, todoID string) (Todo, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = ? AND list_id = ?`, todoID, listID)
	t, err := scanTodo(row)
	if err != nil {
		return Todo{}, notFound(err)
	}
	return t, nil
}

// TodosForList returns a list's todos in creation order.
func (s *Store) TodosForList(ctx context.Context, listID string) ([]Todo, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE list_id = ? ORDER BY created_at, id`, listID)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	var out []Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTodo writes every mutable field of t.
func (s *Store) UpdateTodo(ctx context.Context, t Todo) (Todo, error) {
	now := s.timestamp()
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE todos SET task = ?, description = ?, is_completed = ?, start_date = ?, end_date = ?,
		        priority = ?, updated_at = ?
		  WHERE id = ? AND list_id = ?`,
		t.Task, t.Description, t.IsCompleted, nullMillis(t.StartDate), nullMillis(t.EndDate),
		string(t.Priority), toMillis(now), t.ID, t.ListID,
	)
	if err != nil {
		return Todo{}, fmt.Errorf("update todo: %w", err)
	}
	if err := affected(res); err != nil {
		return Todo{}, err
	}
	return s.GetTodo(ctx, t.ListID, t.ID)
}

func (s *Store) DeleteTodo(ctx context.Context, listID, todoID string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM todos WHERE id = ? AND list_id = ?`, todoID, listID)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return affected(res)
}
