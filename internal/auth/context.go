package auth

import (
	"context"
	"net/http"

	"github.com/sakif/gameshelf/internal/model"
)

// contextKey is an unexported type used for context keys in this package, so
// no other package can read or shadow the values stored under it.
type contextKey string

const userKey contextKey = "user"

// SessionSource reports the signed-in user, if any. Initialize completes the
// session bootstrap (waiting for it when another request started it), so the
// first request after startup sees the restored session.
type SessionSource interface {
	Initialize(ctx context.Context) error
	User() *model.User
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the signed-in user stored by Attach or RequireSession.
//
// Returns (nil, false) if the request is anonymous.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// Attach stores the current user (if any) in the request context and always
// continues.
func Attach(src SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := src.Initialize(r.Context()); err == nil {
				if u := src.User(); u != nil {
					r = r.WithContext(WithUser(r.Context(), u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects API requests made without a session with 401.
// Page routes use the router guard instead, which redirects.
func RequireSession(src SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := src.Initialize(r.Context()); err != nil {
				writeUnauthorized(w)
				return
			}
			u := src.User()
			if u == nil {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"Você precisa estar logado."}` + "\n"))
}
