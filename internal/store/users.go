package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const userColumns = `id, name, email, password_hash, profile_picture, created_at, updated_at`

func scanUser(row rowScanner) (User, error) {
	var (
		u                User
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ProfilePicture, &created, &updated); err != nil {
		return User{}, err
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

func (s *Store) insertUser(ctx context.Context, db execer, u *User) error {
	now := s.timestamp()
	if u.ID == "" {
		u.ID = newID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.ProfilePicture, toMillis(now), toMillis(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// CreateUser inserts a user. A taken email yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	if err := s.insertUser(ctx, s.sqlDB, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// CreateUserWithDefaultList inserts a user and their DEFAULT list atomically.
func (s *Store) CreateUserWithDefaultList(ctx context.Context, u User) (User, TodoList, error) {
	var list TodoList
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.insertUser(ctx, tx, &u); err != nil {
			return err
		}
		list = TodoList{Name: DefaultListName, OwnerID: u.ID}
		return s.insertList(ctx, tx, &list)
	})
	if err != nil {
		return User{}, TodoList{}, err
	}
	return u, list, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return User{}, notFound(err)
	}
	return u, nil
}

// GetUserByEmail looks a user up by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return User{}, notFound(err)
	}
	return u, nil
}

// UpdateUser writes name, email, password hash and picture for u.ID.
func (s *Store) UpdateUser(ctx context.Context, u User) (User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.UpdatedAt = s.timestamp()
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, profile_picture = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, u.ProfilePicture, toMillis(u.UpdatedAt), u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	if err := affected(res); err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, u.ID)
}

// SearchUsers matches query against name and email, skipping excludeID.
func (s *Store) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE id != ? AND (lower(name) LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\')
		 ORDER BY name, email
		 LIMIT ?`,
		excludeID, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func escapeLike(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(value)
}
