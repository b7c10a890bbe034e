package auth

import (
	"context"
	"net/http"

	"github.com/isdelr/accountd/internal/models"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "ACCOUNTD-AUTH"

type contextKey string

// UserContextKey is the context key for the authenticated user.
const UserContextKey = contextKey("currentUser")

// CookieOptions scopes the session cookie.
type CookieOptions struct {
	Domain string
	Secure bool
}

// SetSessionCookie writes the session token cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Domain:   opts.Domain,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionAuthenticator resolves a session token to a user.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// SessionMiddleware creates a middleware for protecting routes with the session cookie.
// Requests without a valid session are rejected with 403.
func SessionMiddleware(authenticator SessionAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			user, err := authenticator.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the user stored by SessionMiddleware.
func CurrentUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}
