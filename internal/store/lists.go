package store

import (
	"context"
	"database/sql"
	"fmt"
)

const listColumns = `l.id, l.name, l.description, l.color, l.group_id, l.owner_id, l.created_at, l.updated_at`

const listSummarySelect = `SELECT ` + listColumns + `,
       u.name, u.email, COALESCE(g.name, ''),
       (SELECT COUNT(*) FROM todos t WHERE t.list_id = l.id),
       (SELECT COUNT(*) FROM todos t WHERE t.list_id = l.id AND t.is_completed = 1),
       (SELECT COUNT(*) FROM list_shares sh WHERE sh.list_id = l.id)
  FROM todo_lists l
  JOIN users u ON u.id = l.owner_id
  LEFT JOIN todo_groups g ON g.id = l.group_id`

func scanList(row rowScanner, extra ...any) (TodoList, error) {
	var (
		l                TodoList
		groupID          sql.NullString
		created, updated int64
	)
	dest := append([]any{&l.ID, &l.Name, &l.Description, &l.Color, &groupID, &l.OwnerID, &created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return TodoList{}, err
	}
	l.GroupID = fromNullString(groupID)
	l.CreatedAt = fromMillis(created)
	l.UpdatedAt = fromMillis(updated)
	return l, nil
}

func scanListSummary(row rowScanner) (ListSummary, error) {
	var sum ListSummary
	l, err := scanList(row, &sum.OwnerName, &sum.OwnerEmail, &sum.GroupName,
		&sum.TodoCount, &sum.CompletedCount, &sum.SharedCount)
	if err != nil {
		return ListSummary{}, err
	}
	sum.TodoList = l
	return sum, nil
}

func (s *Store) insertList(ctx context.Context, db execer, l *TodoList) error {
	now := s.timestamp()
	if l.ID == "" {
		l.ID = newID()
	}
	l.CreatedAt, l.UpdatedAt = now, now
	_, err := db.ExecContext(ctx,
		`INSERT INTO todo_lists (id, name, description, color, group_id, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Description, l.Color, nullString(l.GroupID), l.OwnerID, toMillis(now), toMillis(now),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrConflict
		case isForeignKeyViolation(err):
			return ErrNotFound
		}
		return fmt.Errorf("insert list: %w", err)
	}
	return nil
}

// CreateList inserts a list. An unknown owner or group yields ErrNotFound.
func (s *Store) CreateList(ctx context.Context, l TodoList) (TodoList, error) {
	if err := s.insertList(ctx, s.sqlDB, &l); err != nil {
		return TodoList{}, err
	}
	return l, nil
}

func (s *Store) GetList(ctx context.Context, id string) (TodoList, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+listColumns+` FROM todo_lists l WHERE l.id = ?`, id)
	l, err := scanList(row)
	if err != nil {
		return TodoList{}, notFound(err)
	}
	return l, nil
}

// GetListSummary returns a list with its owner, group name and counts.
func (s *Store) GetListSummary(ctx context.Context, id string) (ListSummary, error) {
	row := s.sqlDB.QueryRowContext(ctx, listSummarySelect+` WHERE l.id = ?`, id)
	sum, err := scanListSummary(row)
	if err != nil {
		return ListSummary{}, notFound(err)
	}
	return sum, nil
}

// ListListsForUser returns every list the user owns, was shared or reaches
// through a group, newest first.
func (s *Store) ListListsForUser(ctx context.Context, userID string) ([]ListSummary, error) {
	return s.querySummaries(ctx, listSummarySelect+`
 WHERE l.owner_id = ?
    OR l.id IN (SELECT list_id FROM list_shares WHERE user_id = ?)
    OR l.group_id IN (SELECT group_id FROM group_memberships WHERE user_id = ?)
 ORDER BY l.created_at DESC, l.id`, userID, userID, userID)
}

// ListsInGroup returns the lists attached to a group, newest first.
func (s *Store) ListsInGroup(ctx context.Context, groupID string) ([]ListSummary, error) {
	return s.querySummaries(ctx, listSummarySelect+` WHERE l.group_id = ? ORDER BY l.created_at DESC, l.id`, groupID)
}

func (s *Store) querySummaries(ctx context.Context, query string, args ...any) ([]ListSummary, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	var out []ListSummary
	for rows.Next() {
		sum, err := scanListSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// UpdateList writes name, description, color and group for l.ID.
func (s *Store) UpdateList(ctx context.Context, l TodoList) (TodoList, error) {
	now := s.timestamp()
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE todo_lists SET name = ?, description = ?, color = ?, group_id = ?, updated_at = ? WHERE id = ?`,
		l.Name, l.Description, l.Color, nullString(l.GroupID), toMillis(now), l.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return TodoList{}, ErrNotFound
		}
		return TodoList{}, fmt.Errorf("update list: %w", err)
	}
	if err := affected(res); err != nil {
		return TodoList{}, err
	}
	return s.GetList(ctx, l.ID)
}

// DeleteList removes a list together with its todos and shares.
func (s *Store) DeleteList(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM todo_lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return affected(res)
}

// PutShare creates or updates a user's share on a list.
func (s *Store) PutShare(ctx context.Context, share ListShare) (ListShare, error) {
	now := s.timestamp()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO list_shares (list_id, user_id, role, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(list_id, user_id) DO UPDATE SET role = excluded.role`,
		share.ListID, share.UserID, string(share.Role), toMillis(now),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ListShare{}, ErrNotFound
		}
		return ListShare{}, fmt.Errorf("put share: %w", err)
	}
	return s.GetShare(ctx, share.ListID, share.UserID)
}

const shareSelect = `SELECT sh.list_id, sh.user_id, sh.role, u.name, u.email, sh.created_at
  FROM list_shares sh JOIN users u ON u.id = sh.user_id`

func scanShare(row rowScanner) (ListShare, error) {
	var (
		sh      ListShare
		role    string
		created int64
	)
	if err := row.Scan(&sh.ListID, &sh.UserID, &role, &sh.Name, &sh.Email, &created); err != nil {
		return ListShare{}, err
	}
	sh.Role = ShareRole(role)
	sh.CreatedAt = fromMillis(created)
	return sh, nil
}

func (s *Store) GetShare(ctx context.Context, listID, userID string) (ListShare, error) {
	row := s.sqlDB.QueryRowContext(ctx, shareSelect+` WHERE sh.list_id = ? AND sh.user_id = ?`, listID, userID)
	sh, err := scanShare(row)
	if err != nil {
		return ListShare{}, notFound(err)
	}
	return sh, nil
}

// SharesForList returns the users a list is shared with, oldest share first.
func (s *Store) SharesForList(ctx context.Context, listID string) ([]ListShare, error) {
	rows, err := s.sqlDB.QueryContext(ctx, shareSelect+` WHERE sh.list_id = ? ORDER BY sh.created_at, u.email`, listID)
	if err != nil {
		return nil, fmt.Errorf("query shares: %w", err)
	}
	defer rows.Close()

	var out []ListShare
	for rows.Next() {
		sh, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *Store) DeleteShare(ctx context.Context, listID, userID string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM list_shares WHERE list_id = ? AND user_id = ?`, listID, userID)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return affected(res)
}
