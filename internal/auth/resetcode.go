package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	// ResetCodeDigits is the length of a password reset code.
	ResetCodeDigits = 6
	signaturePrefix = "sha256="
)

// NewResetCode returns a random numeric code of ResetCodeDigits digits.
func NewResetCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return fmt.Sprintf("%0*d", ResetCodeDigits, n.Int64()), nil
}

// SignResetCode binds a code to an email with HMAC-SHA256 so only the
// signature needs to be stored.
func SignResetCode(secret, email, code string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(NormalizeEmail(email)))
	mac.Write([]byte{0})
	mac.Write([]byte(strings.TrimSpace(code)))
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifyResetCode checks code against a stored signature in constant time.
func VerifyResetCode(secret, email, code, signature string) bool {
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	expected := SignResetCode(secret, email, code)
	return hmac.Equal([]byte(signature), []byte(expected))
}
