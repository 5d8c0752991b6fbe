// Package auth provides session tokens and password hashing for the embedded
// backend, plus helpers for reading tokens issued by the managed one.
//
// TOKEN SHAPE:
// Tokens mirror what GoTrue issues so both backends hand the app the same thing:
//
//	{"sub":"<user id>","email":"...","user_metadata":{"username":"..."},"exp":...}
//
// They are HS256-signed with the backend's service key.
//
// WHY GOTRUE'S SHAPE?
// The username is not a standard JWT claim. GoTrue keeps whatever the client
// sent at sign-up under user_metadata, and the profile page, the router guard
// and the "is this my profile" check all read it from there. If the embedded
// backend invented its own claim (say "username" at the top level) every
// consumer would need two code paths. Keeping the managed backend's layout
// means a token from either backend decodes into the same model.User.
//
// The embedded backend signs and verifies its own tokens. The managed
// backend's key never reaches this process, so for its tokens only
// TokenExpiry is used: it reads exp without checking the signature, which is
// enough to know when to refresh and nothing more.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/gameshelf/internal/model"
)

const (
	issuer = "gameshelf"

	// DefaultTokenTTL matches GoTrue's default access token lifetime.
	DefaultTokenTTL = time.Hour
)

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), ttl: DefaultTokenTTL}, nil
}

type userMetadata struct {
	Username string `json:"username,omitempty"`
}

// claims is the JWT payload: the registered claims plus GoTrue's identity fields.
type claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email,omitempty"`
	UserMetadata userMetadata `json:"user_metadata"`
}

// Generate signs an access token for user and returns it with its expiry.
func (s *TokenService) Generate(user model.User) (string, time.Time, error) {
	return s.GenerateWithDuration(user, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests and for issuing longer-lived refresh tokens.
func (s *TokenService) GenerateWithDuration(user model.User, d time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(d)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    issuer,
		},
		Email:        user.Email,
		UserMetadata: userMetadata{Username: user.Username},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, exp, nil
}

// Validate parses and verifies a JWT string and returns the identity it carries.
//
// The signature, expiry, issuer and algorithm are all checked.
//
// ALGORITHM CONFUSION:
// The token header names its own algorithm, and the header is attacker
// controlled. A token claiming "alg":"none" carries no signature at all, and
// one claiming RS256 asks the verifier to treat our HMAC secret as a public
// key. jwt.WithValidMethods pins HS256 before the keyfunc ever runs; the
// SigningMethodHMAC check in the keyfunc is a second gate on the same rule.
func (s *TokenService) Validate(tokenStr string) (model.User, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.User{}, fmt.Errorf("auth: token expired")
		}
		return model.User{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.User{}, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return model.User{}, fmt.Errorf("auth: token has no subject")
	}

	return model.User{ID: c.Subject, Email: c.Email, Username: c.UserMetadata.Username}, nil
}

// TokenExpiry reads the exp claim of a token without verifying its signature.
// The client never holds the managed backend's signing key; it only needs to
// know when to refresh.
func TokenExpiry(tokenStr string) (time.Time, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &c); err != nil {
		return time.Time{}, fmt.Errorf("auth: parsing token: %w", err)
	}
	if c.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("auth: token has no exp claim")
	}
	return c.ExpiresAt.Time, nil
}
