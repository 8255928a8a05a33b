package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PutResetCode stores a reset code for an email, replacing any earlier one.
func (s *Store) PutResetCode(ctx context.Context, rc ResetCode) (ResetCode, error) {
	rc.Email = strings.ToLower(strings.TrimSpace(rc.Email))
	rc.CreatedAt = s.timestamp()
	rc.Attempts = 0
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO password_reset_codes (email, code_hash, expires_at, attempts, created_at) VALUES (?, ?, ?, 0, ?)
		 ON CONFLICT(email) DO UPDATE SET code_hash = excluded.code_hash, expires_at = excluded.expires_at,
		        attempts = 0, created_at = excluded.created_at`,
		rc.Email, rc.CodeHash, toMillis(rc.ExpiresAt), toMillis(rc.CreatedAt),
	)
	if err != nil {
		return ResetCode{}, fmt.Errorf("put reset code: %w", err)
	}
	return rc, nil
}

// ConsumeResetAttempt atomically spends one verification attempt on a live
// code and returns the code as it is after the update. ErrNotFound means no
// code exists, it expired at now, or maxAttempts are already spent.
func (s *Store) ConsumeResetAttempt(ctx context.Context, email string, maxAttempts int, now time.Time) (ResetCode, error) {
	var (
		rc               ResetCode
		expires, created int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`UPDATE password_reset_codes SET attempts = attempts + 1
		 WHERE email = ? AND attempts < ? AND expires_at > ?
		 RETURNING email, code_hash, expires_at, attempts, created_at`,
		strings.ToLower(strings.TrimSpace(email)), maxAttempts, toMillis(now),
	).Scan(&rc.Email, &rc.CodeHash, &expires, &rc.Attempts, &created)
	if err != nil {
		return ResetCode{}, notFound(err)
	}
	rc.ExpiresAt = fromMillis(expires)
	rc.CreatedAt = fromMillis(created)
	return rc, nil
}

// ClaimResetCode deletes the code only if it still has the given hash. Of
// several concurrent callers exactly one succeeds; the rest get ErrNotFound.
func (s *Store) ClaimResetCode(ctx context.Context, email, codeHash string) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM password_reset_codes WHERE email = ? AND code_hash = ?`,
		strings.ToLower(strings.TrimSpace(email)), codeHash)
	if err != nil {
		return fmt.Errorf("claim reset code: %w", err)
	}
	return affected(res)
}

func (s *Store) DeleteResetCode(ctx context.Context, email string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM password_reset_codes WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("delete reset code: %w", err)
	}
	return affected(res)
}
