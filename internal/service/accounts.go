package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cexll/tasksync/internal/auth"
	"github.com/cexll/tasksync/internal/store"
)

// Session is the result of a successful login or registration.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      store.User
}

// ProfilePatch carries optional profile changes.
type ProfilePatch struct {
	Name  *string
	Email *string
}

// Register creates an account with its DEFAULT list and signs the user in.
func (s *Service) Register(ctx context.Context, name, email, password string) (Session, error) {
	name = strings.TrimSpace(name)
	email = auth.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return Session{}, invalid("", "name, email and password are required")
	}
	if err := auth.ValidateEmail(email); err != nil {
		return Session{}, invalid("email", "%s", err.Error())
	}
	if err := auth.ValidatePassword(password); err != nil {
		return Session{}, invalid("password", "%s", err.Error())
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Session{}, err
	}
	user, _, err := s.store.CreateUserWithDefaultList(ctx, store.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if errors.Is(err, store.ErrConflict) {
		return Session{}, fmt.Errorf("%w: an account with this email already exists", ErrConflict)
	}
	if err != nil {
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issueSession(user)
}

// Login checks credentials and returns a new session.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, invalid("", "email and password are required")
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: email or password is incorrect", ErrInvalidCredentials)
	}
	if err != nil {
		return Session{}, err
	}
	if !s.hasher.Check(user.PasswordHash, password) {
		return Session{}, fmt.Errorf("%w: email or password is incorrect", ErrInvalidCredentials)
	}
	return s.issueSession(user)
}

func (s *Service) issueSession(user store.User) (Session, error) {
	token, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (store.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return store.User{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	user, err := s.store.GetUser(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, fmt.Errorf("%w: account no longer exists", ErrInvalidCredentials)
	}
	return user, err
}

func (s *Service) Profile(ctx context.Context, userID string) (store.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	return user, wrapNotFound(err, "user")
}

// UpdateProfile changes name and/or email.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (store.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return store.User{}, invalid("name", "name cannot be empty")
		}
		user.Name = name
	}
	if patch.Email != nil {
		email := auth.NormalizeEmail(*patch.Email)
		if err := auth.ValidateEmail(email); err != nil {
			return store.User{}, invalid("email", "%s", err.Error())
		}
		user.Email = email
	}

	updated, err := s.store.UpdateUser(ctx, user)
	if errors.Is(err, store.ErrConflict) {
		return store.User{}, fmt.Errorf("%w: email is already in use", ErrConflict)
	}
	return updated, err
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || next == "" {
		return invalid("", "current and new password are required")
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Check(user.PasswordHash, current) {
		return fmt.Errorf("%w: current password is incorrect", ErrInvalidCredentials)
	}
	if err := auth.ValidatePassword(next); err != nil {
		return invalid("new_password", "%s", err.Error())
	}
	return s.setPassword(ctx, user, next)
}

func (s *Service) setPassword(ctx context.Context, user store.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if _, err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateProfilePicture stores an absolute http(s) image URL.
func (s *Service) UpdateProfilePicture(ctx context.Context, userID, pictureURL string) (store.User, error) {
	pictureURL = strings.TrimSpace(pictureURL)
	if pictureURL == "" {
		return store.User{}, invalid("profile_picture", "image url is required")
	}
	u, err := url.Parse(pictureURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return store.User{}, invalid("profile_picture", "image url must be an absolute http(s) url")
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	user.ProfilePicture = pictureURL
	return s.store.UpdateUser(ctx, user)
}

// SearchUsers finds other users by name or email for sharing and invites.
func (s *Service) SearchUsers(ctx context.Context, userID, query string) ([]store.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("q", "search query is required")
	}
	return s.store.SearchUsers(ctx, query, userID, searchLimit)
}

// resolveUser finds a user by id or, failing that, by email.
func (s *Service) resolveUser(ctx context.Context, userID, email string) (store.User, error) {
	var (
		user store.User
		err  error
	)
	switch {
	case strings.TrimSpace(userID) != "":
		user, err = s.store.GetUser(ctx, strings.TrimSpace(userID))
	case strings.TrimSpace(email) != "":
		user, err = s.store.GetUserByEmail(ctx, email)
	default:
		return store.User{}, invalid("", "user_id or email is required")
	}
	if err != nil {
		return store.User{}, wrapNotFound(err, "user")
	}
	return user, nil
}
