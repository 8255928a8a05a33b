package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cexll/tasksync/internal/auth"
	"github.com/cexll/tasksync/internal/notify"
	"github.com/cexll/tasksync/internal/store"
)

// RequestPasswordReset emails a reset code to a known address. Unknown
// addresses and throttled repeats succeed silently so callers cannot probe
// for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = auth.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return invalid("email", "%s", err.Error())
	}
	if !s.resetRequests.markIfNew(email) {
		s.logger.Debug("password reset throttled")
		return nil
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.resetRequests.forget(email)
		return err
	}

	code, err := auth.NewResetCode()
	if err != nil {
		s.resetRequests.forget(email)
		return err
	}
	expires := s.now().Add(s.resetTTL)
	if _, err := s.store.PutResetCode(ctx, store.ResetCode{
		Email:     user.Email,
		CodeHash:  auth.SignResetCode(s.resetSecret, user.Email, code),
		ExpiresAt: expires,
	}); err != nil {
		s.resetRequests.forget(email)
		return fmt.Errorf("store reset code: %w", err)
	}

	s.notify(notify.NewMessage(notify.KindPasswordReset, user.Email,
		"Your TaskSync password reset code",
		fmt.Sprintf("Use code %s to reset your password. It expires in %d minutes.", code, int(s.resetTTL.Minutes())),
		map[string]string{
			"code":       code,
			"name":       user.Name,
			"expires_at": expires.UTC().Format(time.RFC3339),
		},
	))
	s.logger.Info("password reset requested", zap.String("user_id", user.ID))
	return nil
}

// VerifyResetCode exchanges a valid code for a short-lived reset token. Every
// guess spends one attempt before it is compared, and a matching code is
// claimed by deleting it, so concurrent requests cannot exceed the attempt
// budget or share one code.
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) (string, time.Time, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || code == "" {
		return "", time.Time{}, invalid("", "email and code are required")
	}

	rc, err := s.store.ConsumeResetAttempt(ctx, email, maxResetAttempts, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return "", time.Time{}, ErrResetCodeInvalid
	}
	if err != nil {
		return "", time.Time{}, err
	}

	if !auth.VerifyResetCode(s.resetSecret, email, code, rc.CodeHash) {
		if rc.Attempts >= maxResetAttempts {
			s.discardResetCode(ctx, email)
		}
		return "", time.Time{}, ErrResetCodeInvalid
	}

	err = s.store.ClaimResetCode(ctx, email, rc.CodeHash)
	if errors.Is(err, store.ErrNotFound) {
		return "", time.Time{}, ErrResetCodeInvalid
	}
	if err != nil {
		return "", time.Time{}, err
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", time.Time{}, ErrResetCodeInvalid
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return s.tokens.IssueWithPurpose(user.ID, auth.PurposePasswordReset, s.resetTTL)
}

func (s *Service) discardResetCode(ctx context.Context, email string) {
	if err := s.store.DeleteResetCode(ctx, email); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("failed to delete reset code", zap.Error(err))
	}
}

// ResetPassword sets a new password using a token from VerifyResetCode.
// Each token works once.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return invalid("", "token and new password are required")
	}
	claims, err := s.tokens.ParseWithPurpose(token, auth.PurposePasswordReset)
	if err != nil {
		return ErrResetCodeInvalid
	}
	if err := auth.ValidatePassword(password); err != nil {
		return invalid("new_password", "%s", err.Error())
	}
	if !s.usedResetToken.markIfNew(claims.ID) {
		return ErrResetCodeInvalid
	}

	// The token is held while the password changes and released on failure.
	user, err := s.store.GetUser(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrResetCodeInvalid
	}
	if err != nil {
		s.usedResetToken.forget(claims.ID)
		return err
	}
	if err := s.setPassword(ctx, user, password); err != nil {
		s.usedResetToken.forget(claims.ID)
		return err
	}
	s.logger.Info("password reset completed", zap.String("user_id", user.ID))
	return nil
}
