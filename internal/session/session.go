// Package session persists the signed-in user's token between CLI runs.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"

	"github.com/cexll/tasksync/internal/client"
)

var (
	// ErrNoSession means nobody is signed in.
	ErrNoSession = errors.New("not signed in")
	// ErrSessionExpired means the stored token is past its expiry.
	ErrSessionExpired = errors.New("session expired, sign in again")
)

const fileName = "session.yaml"

// Session is a signed-in user and their token.
type Session struct {
	AccessToken string      `yaml:"access_token"`
	ExpiresAt   time.Time   `yaml:"expires_at"`
	BaseURL     string      `yaml:"base_url,omitempty"`
	User        client.User `yaml:"user"`
}

// Expired reports whether the session is past its expiry at now. A zero
// expiry never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// FromAuth builds a session from a login or registration result.
func FromAuth(res client.AuthResult, baseURL string) Session {
	expires := res.Expiry
	if expires.IsZero() {
		if exp, err := ExpiryFromToken(res.Token); err == nil {
			expires = exp
		}
	}
	return Session{AccessToken: res.Token, ExpiresAt: expires, BaseURL: baseURL, User: res.User}
}

// ExpiryFromToken reads the exp claim without verifying the signature.
// Only the server can verify tokens; clients use this to decide when to
// prompt for a new login.
func ExpiryFromToken(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}

// FileStore keeps the session in a YAML file readable only by its owner.
type FileStore struct {
	dir string
	now func() time.Time
}

// NewFileStore stores sessions under dir, usually TASKSYNC_HOME.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

// DefaultDir returns TASKSYNC_HOME, or ~/.tasksync.
func DefaultDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("TASKSYNC_HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".tasksync"), nil
}

// Path is the session file location.
func (f *FileStore) Path() string {
	return filepath.Join(f.dir, fileName)
}

// Save writes the session atomically with mode 0600.
func (f *FileStore) Save(s Session) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return writeFileAtomic(f.Path(), data, 0o600)
}

// Load returns the stored session, or ErrNoSession.
func (f *FileStore) Load() (Session, error) {
	data, err := os.ReadFile(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if s.AccessToken == "" {
		return Session{}, ErrNoSession
	}
	if s.ExpiresAt.IsZero() {
		if exp, err := ExpiryFromToken(s.AccessToken); err == nil {
			s.ExpiresAt = exp
		}
	}
	return s, nil
}

// Verify loads the session and fails with ErrSessionExpired once it has
// expired.
func (f *FileStore) Verify() (Session, error) {
	s, err := f.Load()
	if err != nil {
		return Session{}, err
	}
	if s.Expired(f.now()) {
		return s, ErrSessionExpired
	}
	return s, nil
}

// Clear removes the session file. Clearing twice is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// writeFileAtomic writes through a temp file and rename so readers never
// see a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
