package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/repository"
	"github.com/sakif/gameshelf/internal/router"
)

// State is the auth store's lifecycle.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// AuthStore holds the current user.
type AuthStore struct {
	repo   repository.AuthRepository
	logger *slog.Logger
	ready  chan struct{}

	mu    sync.Mutex
	nav   Navigator
	state State
	user  *model.User
	sub   repository.Subscription
}

// NewAuthStore creates an uninitialized store.
func NewAuthStore(repo repository.AuthRepository, logger *slog.Logger) *AuthStore {
	return &AuthStore{
		repo:   repo,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// SetNavigator wires the router. The router itself depends on the store, so
// it is set after both exist.
func (s *AuthStore) SetNavigator(nav Navigator) {
	s.mu.Lock()
	s.nav = nav
	s.mu.Unlock()
}

// Initialize bootstraps the session once: fetch the current session, then
// subscribe to auth changes for the store's lifetime. Later and concurrent
// callers wait for the first one; the error is only ever ctx's.
func (s *AuthStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Uninitialized {
		s.state = Initializing
		s.mu.Unlock()
		// the bootstrap must finish even if this caller's request goes away
		s.bootstrap(context.WithoutCancel(ctx))
		return nil
	}
	s.mu.Unlock()

	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AuthStore) bootstrap(ctx context.Context) {
	session, err := s.repo.GetSession(ctx)
	if err != nil {
		s.logger.Error("fetching session", "error", err)
		session = nil
	}

	s.mu.Lock()
	if session != nil {
		u := session.User
		s.user = &u
	}
	s.mu.Unlock()

	sub := s.repo.OnAuthStateChange(s.onAuthStateChange)

	s.mu.Lock()
	s.sub = sub
	s.state = Ready
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("auth session initialized", "signed_in", s.IsAuthenticated())
}

func (s *AuthStore) onAuthStateChange(event model.AuthEvent, session *model.Session) {
	s.mu.Lock()
	if session == nil {
		s.user = nil
	} else {
		u := session.User
		s.user = &u
	}
	s.mu.Unlock()
	s.logger.Debug("auth state changed", "event", event)
}

// Close releases the auth subscription.
func (s *AuthStore) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// User returns a copy of the current user, or nil.
func (s *AuthStore) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a user is signed in.
func (s *AuthStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// State returns the lifecycle state.
func (s *AuthStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SignIn authenticates and navigates to the user's profile (home when the
// identity has no username). On failure the session is left unchanged.
func (s *AuthStore) SignIn(ctx context.Context, email, password string) Result {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return invalid(MsgCredentialsMissing)
	}

	session, err := s.repo.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.logger.Info("sign-in failed", "error", err)
		return remote(err)
	}

	s.setUser(&session.User)
	return s.navigate(ctx, router.ProfilePath(session.User.Username))
}

// SignUp registers a new identity with username as metadata and navigates
// to the new profile. When the backend wants the email confirmed first,
// nobody is signed in and the user is sent to the login page.
func (s *AuthStore) SignUp(ctx context.Context, username, email, password string) Result {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if !model.ValidUsername(username) {
		return invalid(MsgInvalidUsername)
	}
	if email == "" || password == "" {
		return invalid(MsgCredentialsMissing)
	}

	user, session, err := s.repo.SignUp(ctx, username, email, password)
	if err != nil {
		s.logger.Info("sign-up failed", "error", err)
		return remote(err)
	}
	if session == nil {
		r := s.navigate(ctx, router.PathLogin)
		r.Message = MsgConfirmEmail
		return r
	}

	s.setUser(&session.User)
	name := session.User.Username
	if name == "" && user != nil {
		name = user.Username
	}
	return s.navigate(ctx, router.ProfilePath(name))
}

// SignOut revokes the remote session first. Only then is the local user
// cleared and navigation forced to the login page; a failed revoke keeps the
// user signed in.
func (s *AuthStore) SignOut(ctx context.Context) Result {
	if err := s.repo.SignOut(ctx); err != nil {
		s.logger.Error("sign-out failed", "error", err)
		return remote(err)
	}
	s.setUser(nil)
	return s.navigate(ctx, router.PathLogin)
}

func (s *AuthStore) setUser(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
		return
	}
	c := *u
	s.user = &c
}

// navigate pushes path through the navigator and reports where it landed.
func (s *AuthStore) navigate(ctx context.Context, path string) Result {
	s.mu.Lock()
	nav := s.nav
	s.mu.Unlock()

	r := Result{OK: true, Redirect: path}
	if nav == nil {
		return r
	}
	if err := nav.Push(ctx, path); err != nil {
		s.logger.Error("navigation failed", "path", path, "error", err)
		return r
	}
	if cur, ok := nav.(interface{ Current() string }); ok {
		r.Redirect = cur.Current()
	}
	return r
}
