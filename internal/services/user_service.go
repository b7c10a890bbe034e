package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/accountd/internal/auth"
	"github.com/isdelr/accountd/internal/models"
	"github.com/isdelr/accountd/internal/store"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, email, password, username string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, sessionToken string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUsername(ctx context.Context, id, username string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) (*models.User, error)
}

// UserService provides business logic for user accounts.
type UserService struct {
	store  store.UserStore
	hasher *auth.Hasher
}

// NewUserService creates a new UserService.
func NewUserService(s store.UserStore, hasher *auth.Hasher) *UserService {
	return &UserService{store: s, hasher: hasher}
}

// Register creates a new user, salting and hashing their password.
//
// The email check is read-then-write; the store's uniqueness constraint
// settles concurrent registrations, and the loser sees ErrEmailTaken.
func (s *UserService) Register(ctx context.Context, email, password, username string) (*models.User, error) {
	if email == "" || password == "" || username == "" {
		return nil, ErrMissingFields
	}

	_, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("look up email: %w", err)
	}

	salt := auth.GenerateSalt()
	user, err := s.store.Create(ctx, &models.User{
		Email:    email,
		Username: username,
		Authentication: models.Authentication{
			Salt:         salt,
			PasswordHash: s.hasher.Hash(salt, password),
		},
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// Login verifies a user's credentials and issues a new session token.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.store.FindByEmail(ctx, email, store.FieldSalt, store.FieldPasswordHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownEmail
		}
		return nil, fmt.Errorf("look up email: %w", err)
	}

	expected := s.hasher.Hash(user.Authentication.Salt, password)
	if !auth.Equal(user.Authentication.PasswordHash, expected) {
		return nil, ErrWrongPassword
	}

	user.Authentication.SessionToken = s.hasher.Hash(auth.GenerateSalt(), user.ID)
	saved, err := s.store.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("save session token: %w", err)
	}

	sanitized := saved.Sanitized()
	return &sanitized, nil
}

// Authenticate resolves a session token to its user.
func (s *UserService) Authenticate(ctx context.Context, sessionToken string) (*models.User, error) {
	if sessionToken == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.store.FindBySessionToken(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("look up session: %w", err)
	}
	return user, nil
}

// ListUsers returns every user without credential fields.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUsername changes a user's display name.
func (s *UserService) UpdateUsername(ctx context.Context, id, username string) (*models.User, error) {
	if id == "" || username == "" {
		return nil, ErrMissingFields
	}

	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	user.Username = username
	saved, err := s.store.Save(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return saved, nil
}

// DeleteUser removes a user and returns the deleted record.
func (s *UserService) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, ErrMissingFields
	}
	user, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}
	return user, nil
}
