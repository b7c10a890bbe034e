package models

import "time"

// User represents a user account in the system.
type User struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	Username       string         `json:"username"`
	Authentication Authentication `json:"authentication"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Authentication holds the credential fields of a user. They are hidden by
// default and only loaded when a store lookup asks for them.
type Authentication struct {
	Salt         string `json:"-"` // Never expose this to the client
	PasswordHash string `json:"-"` // Never expose this to the client
	SessionToken string `json:"sessionToken,omitempty"`
}

// Sanitized returns a copy of the user without salt and password hash.
func (u User) Sanitized() User {
	u.Authentication.Salt = ""
	u.Authentication.PasswordHash = ""
	return u
}
