package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/accountd/internal/auth"
	"github.com/isdelr/accountd/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for registration, login and user management.
type UserHandler struct {
	service services.UserServiceProvider
	cookie  auth.CookieOptions
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, cookie auth.CookieOptions) *UserHandler {
	return &UserHandler{service: service, cookie: cookie}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// UpdatePayload defines the structure for profile updates.
type UpdatePayload struct {
	Username string `json:"username"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendStatus(w, http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), payload.Email, payload.Password, payload.Username)
	if err != nil {
		logFailure(err, payload.Email, "Failed to register user")
		sendStatus(w, statusFor(err))
		return
	}

	writeJSON(w, user)
}

// Login verifies credentials and sets the session cookie.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendStatus(w, http.StatusBadRequest)
		return
	}

	user, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		logFailure(err, payload.Email, "Failed authentication attempt")
		sendStatus(w, statusFor(err))
		return
	}

	auth.SetSessionCookie(w, user.Authentication.SessionToken, h.cookie)
	writeJSON(w, user)
}

// GetAll lists every user.
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		sendStatus(w, http.StatusBadRequest)
		return
	}
	writeJSON(w, users)
}

// Update changes the username of the authenticated user.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.isOwner(w, r, id) {
		return
	}

	var payload UpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendStatus(w, http.StatusBadRequest)
		return
	}

	user, err := h.service.UpdateUsername(r.Context(), id, payload.Username)
	if err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("Failed to update user")
		sendStatus(w, statusFor(err))
		return
	}
	writeJSON(w, user)
}

// Delete removes the authenticated user's account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.isOwner(w, r, id) {
		return
	}

	user, err := h.service.DeleteUser(r.Context(), id)
	if err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("Failed to delete user")
		sendStatus(w, statusFor(err))
		return
	}
	writeJSON(w, user)
}

// isOwner rejects requests acting on an account other than the session's.
func (h *UserHandler) isOwner(w http.ResponseWriter, r *http.Request, id string) bool {
	current, ok := auth.CurrentUser(r.Context())
	if !ok {
		sendStatus(w, http.StatusForbidden)
		return false
	}
	if current.ID != id {
		log.Warn().Str("user_id", current.ID).Str("target_id", id).Msg("Rejected action on another user's account")
		sendStatus(w, http.StatusForbidden)
		return false
	}
	return true
}

// statusFor maps service errors to the coarse status returned to clients.
// Only a wrong password is distinguishable; everything else is a bad request.
func statusFor(err error) int {
	if errors.Is(err, services.ErrWrongPassword) {
		return http.StatusForbidden
	}
	return http.StatusBadRequest
}

func logFailure(err error, email, msg string) {
	if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrAuthentication) {
		log.Warn().Err(err).Str("email", email).Msg(msg)
		return
	}
	log.Error().Err(err).Str("email", email).Msg(msg)
}

func sendStatus(w http.ResponseWriter, code int) {
	http.Error(w, http.StatusText(code), code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
