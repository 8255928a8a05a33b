package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123"

func fixedIssuer(at time.Time) *TokenIssuer {
	i := NewTokenIssuer(testSecret, time.Hour)
	i.now = func() time.Time { return at }
	return i
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := fixedIssuer(now)

	token, expires, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expires.Equal(now.Add(time.Hour)) {
		t.Fatalf("expires = %v, want %v", expires, now.Add(time.Hour))
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Subject != "user-1" || claims.Purpose != PurposeSession {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("jti should be set")
	}
}

func TestTokenIssuer_Rejects(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := fixedIssuer(now)

	session, _, _ := issuer.Issue("user-1")
	reset, _, _ := issuer.IssueWithPurpose("user-1", PurposePasswordReset, 10*time.Minute)
	other, _, _ := NewTokenIssuer("another-secret-value", time.Hour).Issue("user-1")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1", Purpose: PurposeSession,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	later := fixedIssuer(now.Add(2 * time.Hour))

	tests := []struct {
		name    string
		parse   func() error
		wantErr error
	}{
		{"garbage", func() error { _, err := issuer.Parse("not.a.jwt"); return err }, ErrInvalidToken},
		{"wrong secret", func() error { _, err := issuer.Parse(other); return err }, ErrInvalidToken},
		{"alg none", func() error { _, err := issuer.Parse(unsigned); return err }, ErrInvalidToken},
		{"reset used as session", func() error { _, err := issuer.Parse(reset); return err }, ErrInvalidToken},
		{"session used as reset", func() error {
			_, err := issuer.ParseWithPurpose(session, PurposePasswordReset)
			return err
		}, ErrInvalidToken},
		{"expired", func() error { _, err := later.Parse(session); return err }, ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.parse(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := issuer.ParseWithPurpose(reset, PurposePasswordReset); err != nil {
		t.Fatalf("reset token with reset purpose: %v", err)
	}
}

func TestTokenIssuer_RequiresUser(t *testing.T) {
	if _, _, err := NewTokenIssuer(testSecret, time.Hour).Issue(""); err == nil {
		t.Fatal("Issue with empty user id should fail")
	}
}
