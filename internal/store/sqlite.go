package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/accountd/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const userColumns = "id, email, username, password_salt, password_hash, session_token, created_at"

// SQLiteStore keeps users in the SQLite database set up by database.Migrate.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user  models.User
		token sql.NullString
	)
	err := row.Scan(&user.ID, &user.Email, &user.Username,
		&user.Authentication.Salt, &user.Authentication.PasswordHash, &token, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	user.Authentication.SessionToken = token.String
	return &user, nil
}

func (s *SQLiteStore) findOne(ctx context.Context, where string, arg any, fields []Field) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	selectFields(fields).apply(user)
	return user, nil
}

// List retrieves all users.
func (s *SQLiteStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		selectFields(nil).apply(user)
		users = append(users, *user)
	}
	return users, rows.Err()
}

// FindByEmail retrieves a single user by their email.
func (s *SQLiteStore) FindByEmail(ctx context.Context, email string, fields ...Field) (*models.User, error) {
	return s.findOne(ctx, "email = ?", email, fields)
}

// FindByID retrieves a single user by their ID.
func (s *SQLiteStore) FindByID(ctx context.Context, id string, fields ...Field) (*models.User, error) {
	return s.findOne(ctx, "id = ?", id, fields)
}

// FindBySessionToken retrieves the user holding the given session token.
func (s *SQLiteStore) FindBySessionToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, "session_token = ?", token, []Field{FieldSessionToken})
}

// Create inserts a new user with a fresh UUID.
func (s *SQLiteStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	created := *user
	created.ID = uuid.New().String()
	created.CreatedAt = time.Now().UTC()

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO users(id, email, username, password_salt, password_hash, session_token, created_at) VALUES(?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, created.ID, created.Email, created.Username,
		created.Authentication.Salt, created.Authentication.PasswordHash,
		nullString(created.Authentication.SessionToken), created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &created, nil
}

// Save updates a user's mutable fields in place.
func (s *SQLiteStore) Save(ctx context.Context, user *models.User) (*models.User, error) {
	var (
		res sql.Result
		err error
	)
	if user.Authentication.SessionToken != "" {
		res, err = s.db.ExecContext(ctx, "UPDATE users SET email = ?, username = ?, session_token = ? WHERE id = ?",
			user.Email, user.Username, user.Authentication.SessionToken, user.ID)
	} else {
		res, err = s.db.ExecContext(ctx, "UPDATE users SET email = ?, username = ? WHERE id = ?",
			user.Email, user.Username, user.ID)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	saved := *user
	return &saved, nil
}

// Delete removes a user from the database.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (*models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
