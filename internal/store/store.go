// Package store persists user accounts.
package store

import (
	"context"
	"errors"

	"github.com/isdelr/accountd/internal/models"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Field names a credential field that lookups omit unless asked for.
type Field int

const (
	FieldSalt Field = iota + 1
	FieldPasswordHash
	FieldSessionToken
)

// UserStore is the persistence contract used by the user service.
type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
	FindByEmail(ctx context.Context, email string, fields ...Field) (*models.User, error)
	FindByID(ctx context.Context, id string, fields ...Field) (*models.User, error)
	FindBySessionToken(ctx context.Context, token string) (*models.User, error)
	// Create inserts a new user and assigns its ID. A taken email yields ErrDuplicateEmail.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// Save updates email and username, plus the session token when it is set.
	Save(ctx context.Context, user *models.User) (*models.User, error)
	// Delete removes the user and returns the record it had.
	Delete(ctx context.Context, id string) (*models.User, error)
}

type fieldSet struct {
	salt, passwordHash, sessionToken bool
}

func selectFields(fields []Field) fieldSet {
	var fs fieldSet
	for _, f := range fields {
		switch f {
		case FieldSalt:
			fs.salt = true
		case FieldPasswordHash:
			fs.passwordHash = true
		case FieldSessionToken:
			fs.sessionToken = true
		}
	}
	return fs
}

// apply clears credential fields that were not requested.
func (fs fieldSet) apply(u *models.User) {
	if !fs.salt {
		u.Authentication.Salt = ""
	}
	if !fs.passwordHash {
		u.Authentication.PasswordHash = ""
	}
	if !fs.sessionToken {
		u.Authentication.SessionToken = ""
	}
}
