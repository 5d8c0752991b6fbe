package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/auth"
	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/repository"
)

// refreshTokenTTL bounds how long a session can be renewed without signing in again.
const refreshTokenTTL = 30 * 24 * time.Hour

var errInvalidCredentials = &apperror.BackendError{
	Status:  400,
	Code:    "invalid_credentials",
	Message: auth.ErrInvalidCredentials.Error(),
}

var errUserExists = &apperror.BackendError{
	Status:  422,
	Code:    "user_already_exists",
	Message: "User already registered",
}

// GetSession returns the current session. An expired access token is renewed
// from the refresh token, emitting TOKEN_REFRESHED; a session that cannot be
// renewed is dropped and reported as signed out.
func (db *DB) GetSession(ctx context.Context) (*model.Session, error) {
	db.mu.Lock()
	session := db.session
	db.mu.Unlock()

	if session == nil {
		return nil, nil
	}
	if !session.Expired(time.Now()) {
		s := *session
		return &s, nil
	}

	user, err := db.tokens.Validate(session.RefreshToken)
	if err != nil {
		db.logger.Info("embedded session could not be refreshed", "error", err)
		db.setSession(nil, model.EventSignedOut)
		return nil, nil
	}
	refreshed, err := db.issueSession(user)
	if err != nil {
		return nil, err
	}
	db.setSession(refreshed, model.EventTokenRefreshed)
	s := *refreshed
	return &s, nil
}

// OnAuthStateChange registers fn. Like the managed client, a new listener is
// immediately told about the current state with INITIAL_SESSION.
func (db *DB) OnAuthStateChange(fn repository.AuthListener) repository.Subscription {
	db.mu.Lock()
	id := db.nextSub
	db.nextSub++
	db.listeners[id] = fn
	var current *model.Session
	if db.session != nil {
		s := *db.session
		current = &s
	}
	db.mu.Unlock()

	fn(model.EventInitialSession, current)

	return &subscription{unsubscribe: func() {
		db.mu.Lock()
		delete(db.listeners, id)
		db.mu.Unlock()
	}}
}

type subscription struct {
	once        sync.Once
	unsubscribe func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}

// SignInWithPassword checks the credentials against the users table.
// Unknown email and wrong password are indistinguishable to the caller.
func (db *DB) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	var (
		user model.User
		hash string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash FROM users WHERE email = ?`,
		strings.TrimSpace(email),
	).Scan(&user.ID, &user.Email, &user.Username, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: looking up user by email: %w", err)
	}

	if err := db.passwords.Verify(hash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	session, err := db.issueSession(user)
	if err != nil {
		return nil, err
	}
	db.setSession(session, model.EventSignedIn)
	s := *session
	return &s, nil
}

// SignUp creates the identity and its profile in one transaction, then signs
// the new user in. The embedded backend never requires email confirmation.
func (db *DB) SignUp(ctx context.Context, username, email, password string) (*model.User, *model.Session, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, nil, &apperror.BackendError{Status: 400, Code: "validation_failed", Message: "Unable to validate email address: invalid format"}
	}
	hash, err := db.passwords.Hash(password)
	if err != nil {
		return nil, nil, &apperror.BackendError{Status: 422, Code: "weak_password", Message: err.Error()}
	}

	user := model.User{ID: uuid.NewString(), Email: email, Username: username}
	now := time.Now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: beginning sign-up transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, username, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, hash, user.Username, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, errUserExists
		}
		return nil, nil, fmt.Errorf("sqlite: inserting user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (id, username, email, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, apperror.UniqueViolation("profiles_username_key")
		}
		return nil, nil, fmt.Errorf("sqlite: inserting profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("sqlite: committing sign-up: %w", err)
	}

	session, err := db.issueSession(user)
	if err != nil {
		return nil, nil, err
	}
	db.setSession(session, model.EventSignedIn)
	s := *session
	return &user, &s, nil
}

// SignOut drops the local session. Signing out while signed out is a no-op.
func (db *DB) SignOut(ctx context.Context) error {
	db.mu.Lock()
	had := db.session != nil
	db.mu.Unlock()
	if !had {
		return nil
	}
	db.setSession(nil, model.EventSignedOut)
	return nil
}

func (db *DB) issueSession(user model.User) (*model.Session, error) {
	access, exp, err := db.tokens.Generate(user)
	if err != nil {
		return nil, err
	}
	refresh, _, err := db.tokens.GenerateWithDuration(user, refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &model.Session{User: user, AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// setSession swaps the session and notifies listeners outside the lock.
func (db *DB) setSession(session *model.Session, event model.AuthEvent) {
	db.mu.Lock()
	db.session = session
	listeners := make([]repository.AuthListener, 0, len(db.listeners))
	for _, fn := range db.listeners {
		listeners = append(listeners, fn)
	}
	db.mu.Unlock()

	for _, fn := range listeners {
		var s *model.Session
		if session != nil {
			c := *session
			s = &c
		}
		fn(event, s)
	}
}
