package store

import (
	"context"
	"database/sql"
	"fmt"
)

const groupColumns = `g.id, g.name, g.description, g.owner_id, g.created_at, g.updated_at`

func scanGroup(row rowScanner, extra ...any) (Group, error) {
	var (
		g                Group
		created, updated int64
	)
	dest := append([]any{&g.ID, &g.Name, &g.Description, &g.OwnerID, &created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Group{}, err
	}
	g.CreatedAt = fromMillis(created)
	g.UpdatedAt = fromMillis(updated)
	return g, nil
}

// CreateGroupWithOwner inserts a group and the creator's Owner membership in
// one transaction.
func (s *Store) CreateGroupWithOwner(ctx context.Context, g Group) (Group, Membership, error) {
	now := s.timestamp()
	if g.ID == "" {
		g.ID = newID()
	}
	g.CreatedAt, g.UpdatedAt = now, now
	m := Membership{GroupID: g.ID, UserID: g.OwnerID, RoleName: RoleOwner, CreatedAt: now, UpdatedAt: now}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		roleID, err := roleIDByName(ctx, tx, RoleOwner)
		if err != nil {
			return err
		}
		m.RoleID = roleID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO todo_groups (id, name, description, owner_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			g.ID, g.Name, g.Description, g.OwnerID, toMillis(now), toMillis(now),
		); err != nil {
			if isForeignKeyViolation(err) {
				return ErrNotFound
			}
			return fmt.Errorf("insert group: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_memberships (group_id, user_id, role_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			m.GroupID, m.UserID, m.RoleID, toMillis(now), toMillis(now),
		); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return Group{}, Membership{}, err
	}
	return g, m, nil
}

func (s *Store) GetGroup(ctx context.Context, id string) (Group, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM todo_groups g WHERE g.id = ?`, id)
	g, err := scanGroup(row)
	if err != nil {
		return Group{}, notFound(err)
	}
	return g, nil
}

// GroupsForUser returns the groups userID belongs to with the user's role
// name and member/list counts, newest first.
func (s *Store) GroupsForUser(ctx context.Context, userID string) ([]GroupSummary, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+groupColumns+`,
	       u.name, u.email, r.name,
	       (SELECT COUNT(*) FROM group_memberships gm2 WHERE gm2.group_id = g.id),
	       (SELECT COUNT(*) FROM todo_lists l WHERE l.group_id = g.id)
	  FROM group_memberships gm
	  JOIN todo_groups g ON g.id = gm.group_id
	  JOIN users u ON u.id = g.owner_id
	  JOIN roles r ON r.id = gm.role_id
	 WHERE gm.user_id = ?
	 ORDER BY g.created_at DESC, g.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var out []GroupSummary
	for rows.Next() {
		var sum GroupSummary
		g, err := scanGroup(rows, &sum.OwnerName, &sum.OwnerEmail, &sum.RoleName, &sum.MembersCount, &sum.ListsCount)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		sum.Group = g
		out = append(out, sum)
	}
	return out, rows.Err()
}

// UpdateGroup writes name and description for g.ID.
func (s *Store) UpdateGroup(ctx context.Context, g Group) (Group, error) {
	now := s.timestamp()
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE todo_groups SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		g.Name, g.Description, toMillis(now), g.ID,
	)
	if err != nil {
		return Group{}, fmt.Errorf("update group: %w", err)
	}
	if err := affected(res); err != nil {
		return Group{}, err
	}
	return s.GetGroup(ctx, g.ID)
}

// DeleteGroup removes a group and its memberships. Its lists stay with
// their owners, detached from the group.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM todo_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return affected(res)
}

// AddMembership inserts a membership. An existing member yields ErrConflict.
func (s *Store) AddMembership(ctx context.Context, m Membership) (Membership, error) {
	now := s.timestamp()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO group_memberships (group_id, user_id, role_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		m.GroupID, m.UserID, m.RoleID, toMillis(now), toMillis(now),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return Membership{}, ErrConflict
		case isForeignKeyViolation(err):
			return Membership{}, ErrNotFound
		}
		return Membership{}, fmt.Errorf("insert membership: %w", err)
	}
	return s.GetMembership(ctx, m.GroupID, m.UserID)
}

// PutMembership creates a membership or changes its role.
func (s *Store) PutMembership(ctx context.Context, m Membership) (Membership, error) {
	now := s.timestamp()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO group_memberships (group_id, user_id, role_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(group_id, user_id) DO UPDATE SET role_id = excluded.role_id, updated_at = excluded.updated_at`,
		m.GroupID, m.UserID, m.RoleID, toMillis(now), toMillis(now),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Membership{}, ErrNotFound
		}
		return Membership{}, fmt.Errorf("put membership: %w", err)
	}
	return s.GetMembership(ctx, m.GroupID, m.UserID)
}

const memberSelect = `SELECT gm.group_id, gm.user_id, gm.role_id, r.name, gm.created_at, gm.updated_at, u.name, u.email
  FROM group_memberships gm
  JOIN roles r ON r.id = gm.role_id
  JOIN users u ON u.id = gm.user_id`

func scanMember(row rowScanner) (Member, error) {
	var (
		m                Member
		created, updated int64
	)
	if err := row.Scan(&m.GroupID, &m.UserID, &m.RoleID, &m.RoleName, &created, &updated, &m.Name, &m.Email); err != nil {
		return Member{}, err
	}
	m.CreatedAt = fromMillis(created)
	m.UpdatedAt = fromMillis(updated)
	return m, nil
}

func (s *Store) GetMembership(ctx context.Context, groupID, userID string) (Membership, error) {
	row := s.sqlDB.QueryRowContext(ctx, memberSelect+` WHERE gm.group_id = ? AND gm.user_id = ?`, groupID, userID)
	m, err := scanMember(row)
	if err != nil {
		return Membership{}, notFound(err)
	}
	return m.Membership, nil
}

// MembersOfGroup returns the group's members in join order.
func (s *Store) MembersOfGroup(ctx context.Context, groupID string) ([]Member, error) {
	rows, err := s.sqlDB.QueryContext(ctx, memberSelect+` WHERE gm.group_id = ? ORDER BY gm.created_at, u.email`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) DeleteMembership(ctx context.Context, groupID, userID string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM group_memberships WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return affected(res)
}
