package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SeedRoles upserts the built-in roles and their permission sets. It is safe
// to call on every start.
func (s *Store) SeedRoles(ctx context.Context) error {
	now := toMillis(s.timestamp())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, perm := range AllPermissions {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO permissions (name) VALUES (?)`, perm); err != nil {
				return fmt.Errorf("seed permission %s: %w", perm, err)
			}
		}
		for _, name := range []string{RoleOwner, RoleContributor, RoleViewer} {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO roles (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
				 ON CONFLICT(name) DO NOTHING`,
				newID(), name, now, now,
			); err != nil {
				return fmt.Errorf("seed role %s: %w", name, err)
			}
			var roleID string
			if err := tx.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = ?`, name).Scan(&roleID); err != nil {
				return fmt.Errorf("load role %s: %w", name, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = ?`, roleID); err != nil {
				return fmt.Errorf("reset permissions for %s: %w", name, err)
			}
			for _, perm := range DefaultRoles[name] {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO role_permissions (role_id, permission) VALUES (?, ?)`, roleID, perm,
				); err != nil {
					return fmt.Errorf("grant %s to %s: %w", perm, name, err)
				}
			}
		}
		return nil
	})
}

const roleSelect = `SELECT r.id, r.name, r.created_at, r.updated_at, COALESCE(rp.permission, '')
  FROM roles r LEFT JOIN role_permissions rp ON rp.role_id = r.id`

const roleOrder = ` ORDER BY CASE r.name WHEN 'Owner' THEN 0 WHEN 'Contributor' THEN 1 WHEN 'Viewer' THEN 2 ELSE 3 END,
          r.name, rp.permission`

// ListRoles returns every role with its permission names, strongest first.
func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	return s.queryRoles(ctx, roleSelect+roleOrder)
}

func (s *Store) GetRole(ctx context.Context, id string) (Role, error) {
	return s.oneRole(s.queryRoles(ctx, roleSelect+` WHERE r.id = ?`+roleOrder, id))
}

// GetRoleByName looks a role up by its exact name.
func (s *Store) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return s.oneRole(s.queryRoles(ctx, roleSelect+` WHERE r.name = ?`+roleOrder, name))
}

func (s *Store) oneRole(roles []Role, err error) (Role, error) {
	if err != nil {
		return Role{}, err
	}
	if len(roles) == 0 {
		return Role{}, ErrNotFound
	}
	return roles[0], nil
}

func (s *Store) queryRoles(ctx context.Context, query string, args ...any) ([]Role, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var (
		roles []Role
		index = map[string]int{}
	)
	for rows.Next() {
		var (
			r                Role
			created, updated int64
			perm             string
		)
		if err := rows.Scan(&r.ID, &r.Name, &created, &updated, &perm); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		i, ok := index[r.ID]
		if !ok {
			r.CreatedAt = fromMillis(created)
			r.UpdatedAt = fromMillis(updated)
			r.Permissions = []string{}
			roles = append(roles, r)
			i = len(roles) - 1
			index[r.ID] = i
		}
		if perm != "" {
			roles[i].Permissions = append(roles[i].Permissions, perm)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func roleIDByName(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("role %s not seeded: %w", name, ErrNotFound)
	}
	return id, err
}
