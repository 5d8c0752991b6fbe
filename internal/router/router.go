// Package router holds the route table and the navigation guard.
//
// Every navigation, whether an incoming page request (Middleware) or a store
// redirecting after sign-in (Push), goes through Resolve: wait for the auth
// session to initialize, then apply the guard rules until a route proceeds.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/sakif/gameshelf/internal/model"
)

const (
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathHome      = "/"
	profilePrefix = "/user/"
)

// MaxRedirects bounds guard redirect chains.
const MaxRedirects = 5

// ErrTooManyRedirects is returned when guard redirects do not settle.
var ErrTooManyRedirects = errors.New("router: too many redirects")

// Access says who may visit a route.
type Access int

const (
	Public Access = iota
	GuestOnly
	AuthRequired
)

// Route is one entry of the route table.
type Route struct {
	Name    string
	Pattern string
	Access  Access
}

// Routes is the route table, in match order.
var Routes = []Route{
	{Name: "login", Pattern: PathLogin, Access: GuestOnly},
	{Name: "register", Pattern: PathRegister, Access: GuestOnly},
	{Name: "home", Pattern: PathHome, Access: AuthRequired},
	{Name: "profile", Pattern: profilePrefix + "{username}", Access: AuthRequired},
}

// ProfilePath is the page of the user with the given name, or home when the
// name is empty.
func ProfilePath(username string) string {
	if username == "" {
		return PathHome
	}
	return profilePrefix + url.PathEscape(username)
}

// Match finds the route for path.
func Match(path string) (Route, bool) {
	for _, rt := range Routes {
		if pattern, ok := strings.CutSuffix(rt.Pattern, "{username}"); ok {
			rest, found := strings.CutPrefix(path, pattern)
			if found && rest != "" && !strings.Contains(rest, "/") {
				return rt, true
			}
			continue
		}
		if path == rt.Pattern {
			return rt, true
		}
	}
	return Route{}, false
}

// Decide applies the guard rules to a navigation towards path. It returns the
// redirect target, or "" to proceed. First match wins.
func Decide(path string, authenticated bool) string {
	rt, known := Match(path)
	switch {
	case known && rt.Access == GuestOnly && authenticated:
		return PathHome
	case known && rt.Access == AuthRequired && !authenticated:
		return PathLogin
	case (path == PathLogin || path == PathRegister) && authenticated:
		return PathHome
	default:
		return ""
	}
}

// Session is what the guard needs from the auth session store.
type Session interface {
	// Initialize completes the one-time bootstrap, waiting for it if another
	// caller started it.
	Initialize(ctx context.Context) error
	User() *model.User
}

// Router performs guarded navigation and tracks the current location.
type Router struct {
	session Session
	logger  *slog.Logger

	mu      sync.Mutex
	current string
}

// New creates a Router over session.
func New(session Session, logger *slog.Logger) *Router {
	return &Router{session: session, logger: logger, current: PathHome}
}

// Resolve runs the guard for a navigation to path and returns where it ends.
func (r *Router) Resolve(ctx context.Context, path string) (string, error) {
	for hop := 0; hop <= MaxRedirects; hop++ {
		if err := r.session.Initialize(ctx); err != nil {
			return "", fmt.Errorf("router: waiting for session: %w", err)
		}
		target := Decide(path, r.session.User() != nil)
		if target == "" {
			return path, nil
		}
		r.logger.Debug("navigation redirected", "from", path, "to", target)
		path = target
	}
	return "", ErrTooManyRedirects
}

// Push navigates programmatically. The stores use it after sign-in and sign-out.
func (r *Router) Push(ctx context.Context, path string) error {
	final, err := r.Resolve(ctx, path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.current = final
	r.mu.Unlock()
	return nil
}

// Current returns the location of the last completed navigation.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Middleware guards page requests, answering a redirect with 303 See Other.
func (r *Router) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		final, err := r.Resolve(req.Context(), req.URL.Path)
		if err != nil {
			r.logger.Error("navigation guard failed", "path", req.URL.Path, "error", err)
			http.Error(w, "navigation failed", http.StatusInternalServerError)
			return
		}
		if final != req.URL.Path {
			http.Redirect(w, req, final, http.StatusSeeOther)
			return
		}

		r.mu.Lock()
		r.current = final
		r.mu.Unlock()
		next.ServeHTTP(w, req)
	})
}
