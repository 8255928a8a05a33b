package auth

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{name: "valid", password: "Secr3t!pw"},
		{name: "too short", password: "S3c!a", wantErr: "at least 8 characters"},
		{name: "too long", password: "Aa1!" + strings.Repeat("x", 80), wantErr: "at most 72 bytes"},
		{name: "no symbol", password: "Secr3tpw", wantErr: "symbol"},
		{name: "no number", password: "Secret!pw", wantErr: "number"},
		{name: "no upper", password: "secr3t!pw", wantErr: "uppercase"},
		{name: "no lower", password: "SECR3T!PW", wantErr: "lowercase"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidatePassword(%q) = %v, want nil", tt.password, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ValidatePassword(%q) = %v, want error containing %q", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"ada@example.com", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"ada", false},
		{"ada@localhost", false},
		{"ada@example.", false},
		{"Ada <ada@example.com>", false},
		{"ada@@example.com", false},
	}
	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateEmail(%q) = %v, want ok=%v", tt.email, err, tt.ok)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ada@Example.COM "); got != "ada@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}

func TestHasher(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash("Secr3t!pw")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "Secr3t!pw" {
		t.Fatal("hash must not equal the password")
	}
	if !h.Check(hash, "Secr3t!pw") {
		t.Fatal("Check should accept the right password")
	}
	if h.Check(hash, "wrong") {
		t.Fatal("Check should reject the wrong password")
	}
	if NewHasher(0).cost == 0 {
		t.Fatal("zero cost should fall back to the bcrypt default")
	}
}
