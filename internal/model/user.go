// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the authenticated identity returned by the backend's auth service.
//
// Username comes from the identity metadata written at sign-up. Accounts created
// outside the app may not carry it, so it can be empty.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// Session is an authenticated identity plus the tokens that prove it.
type Session struct {
	User         User      `json:"user"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the access token is past its expiry at t.
// A zero ExpiresAt never expires.
func (s *Session) Expired(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && !t.Before(s.ExpiresAt)
}

// AuthEvent names a change in authentication state.
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)
