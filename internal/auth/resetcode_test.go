package auth

import (
	"regexp"
	"testing"
)

func TestNewResetCode(t *testing.T) {
	digits := regexp.MustCompile(`^\d{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewResetCode()
		if err != nil {
			t.Fatalf("NewResetCode: %v", err)
		}
		if !digits.MatchString(code) {
			t.Fatalf("code %q is not six digits", code)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("reset codes should vary")
	}
}

func TestResetCodeSignature(t *testing.T) {
	sig := SignResetCode("secret", "Ada@Example.com", "123456")

	tests := []struct {
		name   string
		secret string
		email  string
		code   string
		sig    string
		want   bool
	}{
		{"match", "secret", "ada@example.com", "123456", sig, true},
		{"email case and space ignored", "secret", "  ADA@example.com", " 123456 ", sig, true},
		{"wrong code", "secret", "ada@example.com", "123457", sig, false},
		{"wrong email", "secret", "bob@example.com", "123456", sig, false},
		{"wrong secret", "other", "ada@example.com", "123456", sig, false},
		{"missing prefix", "secret", "ada@example.com", "123456", sig[len("sha256="):], false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyResetCode(tt.secret, tt.email, tt.code, tt.sig); got != tt.want {
				t.Fatalf("VerifyResetCode = %v, want %v", got, tt.want)
			}
		})
	}
}
