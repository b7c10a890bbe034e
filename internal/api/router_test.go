package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/isdelr/accountd/internal/auth"
	"github.com/isdelr/accountd/internal/database"
	"github.com/isdelr/accountd/internal/models"
	"github.com/isdelr/accountd/internal/services"
	"github.com/isdelr/accountd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "accountd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	svc := services.NewUserService(store.NewSQLiteStore(db), auth.NewHasher(auth.LegacySecret))
	return NewRouter(svc, RouterOptions{
		AllowedOrigins: []string{"http://localhost:3000"},
		Cookie:         auth.CookieOptions{Domain: "localhost"},
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, h http.Handler, email, password, username string) *httptest.ResponseRecorder {
	return do(t, h, http.MethodPost, "/auth/register", map[string]string{
		"email": email, "password": password, "username": username,
	}, nil)
}

func login(t *testing.T, h http.Handler, email, password string) *httptest.ResponseRecorder {
	return do(t, h, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": password,
	}, nil)
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func decodeUser(t *testing.T, w *httptest.ResponseRecorder) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, json.NewDecoder(w.Body).Decode(&u))
	return u
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterThenLogin(t *testing.T) {
	h := newTestRouter(t)

	w := register(t, h, "a@x.com", "p1", "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "salt")
	assert.NotContains(t, w.Body.String(), "password")
	registered := decodeUser(t, w)
	assert.Equal(t, "a@x.com", registered.Email)
	assert.Equal(t, "u1", registered.Username)

	w = login(t, h, "a@x.com", "p1")
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, "localhost", cookie.Domain)
	assert.Equal(t, "/", cookie.Path)

	user := decodeUser(t, w)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, cookie.Value, user.Authentication.SessionToken)
}

func TestLoginScenario(t *testing.T) {
	h := newTestRouter(t)

	require.Equal(t, http.StatusOK, register(t, h, "b@x.com", "secret", "bob").Code)

	first := login(t, h, "b@x.com", "secret")
	require.Equal(t, http.StatusOK, first.Code)
	second := login(t, h, "b@x.com", "secret")
	require.Equal(t, http.StatusOK, second.Code)
	assert.NotEqual(t, sessionCookie(first).Value, sessionCookie(second).Value)

	wrong := login(t, h, "b@x.com", "wrong")
	assert.Equal(t, http.StatusForbidden, wrong.Code)
	assert.Nil(t, sessionCookie(wrong))
}

func TestLoginFailures(t *testing.T) {
	h := newTestRouter(t)
	require.Equal(t, http.StatusOK, register(t, h, "a@x.com", "p1", "u1").Code)

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"wrong password", "a@x.com", "nope", http.StatusForbidden},
		{"unknown email", "nobody@x.com", "p1", http.StatusBadRequest},
		{"missing password", "a@x.com", "", http.StatusBadRequest},
		{"missing email", "", "p1", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, login(t, h, tt.email, tt.password).Code)
		})
	}
}

func TestRegisterFailures(t *testing.T) {
	h := newTestRouter(t)
	require.Equal(t, http.StatusOK, register(t, h, "a@x.com", "p1", "u1").Code)

	assert.Equal(t, http.StatusBadRequest, register(t, h, "a@x.com", "p2", "u2").Code)
	assert.Equal(t, http.StatusBadRequest, register(t, h, "", "p2", "u2").Code)
	assert.Equal(t, http.StatusBadRequest, register(t, h, "c@x.com", "", "u2").Code)
	assert.Equal(t, http.StatusBadRequest, register(t, h, "c@x.com", "p2", "").Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The original account still logs in with its own password.
	assert.Equal(t, http.StatusOK, login(t, h, "a@x.com", "p1").Code)
	assert.Equal(t, http.StatusForbidden, login(t, h, "a@x.com", "p2").Code)
}

func TestConcurrentRegistrationSameEmail(t *testing.T) {
	h := newTestRouter(t)

	const attempts = 6
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = register(t, h, "race@x.com", "pw", "racer").Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, c := range codes {
		if c == http.StatusOK {
			ok++
		} else {
			assert.Equal(t, http.StatusBadRequest, c)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestUserRoutesRequireSession(t *testing.T) {
	h := newTestRouter(t)

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/users", nil, nil).Code)
	bogus := &http.Cookie{Name: auth.SessionCookieName, Value: "bogus"}
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/users", nil, bogus).Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodDelete, "/users/anything", nil, nil).Code)
}

func TestUserManagement(t *testing.T) {
	h := newTestRouter(t)

	alice := decodeUser(t, register(t, h, "a@x.com", "p1", "alice"))
	bob := decodeUser(t, register(t, h, "b@x.com", "p2", "bob"))
	cookie := sessionCookie(login(t, h, "a@x.com", "p1"))
	require.NotNil(t, cookie)

	w := do(t, h, http.MethodGet, "/users", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.User
	require.NoError(t, json.NewDecoder(w.Body).Decode(&users))
	assert.Len(t, users, 2)

	// Only the owner may act on an account.
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodDelete, "/users/"+bob.ID, nil, cookie).Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPatch, "/users/"+bob.ID, map[string]string{"username": "x"}, cookie).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/users/"+alice.ID, map[string]string{"username": ""}, cookie).Code)

	w = do(t, h, http.MethodPatch, "/users/"+alice.ID, map[string]string{"username": "alicia"}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alicia", decodeUser(t, w).Username)

	w = do(t, h, http.MethodDelete, "/users/"+alice.ID, nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, alice.ID, decodeUser(t, w).ID)

	// The session died with the account.
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/users", nil, cookie).Code)
	assert.Equal(t, http.StatusBadRequest, login(t, h, "a@x.com", "p1").Code)
}
