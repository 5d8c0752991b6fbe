package postgrest

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/auth"
	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/repository"
)

// refreshTimeout bounds a token refresh, which runs outside any caller context.
const refreshTimeout = 10 * time.Second

// goTrueUser is the user object GoTrue returns.
type goTrueUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Username string `json:"username"`
	} `json:"user_metadata"`
}

func (u goTrueUser) toModel() model.User {
	return model.User{ID: u.ID, Email: u.Email, Username: u.UserMetadata.Username}
}

// goTrueSession is the token endpoint response. Sign-up returns the same shape
// when email confirmation is off, or a bare user when it is on.
type goTrueSession struct {
	AccessToken  string     `json:"access_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int64      `json:"expires_in"`
	ExpiresAt    int64      `json:"expires_at"`
	RefreshToken string     `json:"refresh_token"`
	User         goTrueUser `json:"user"`
}

// token converts the response into an oauth2.Token. Expiry comes from
// expires_at, then expires_in, then the JWT's own exp claim.
func (s goTrueSession) token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
	}
	switch {
	case s.ExpiresAt > 0:
		tok.Expiry = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		tok.Expiry = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	default:
		if exp, err := auth.TokenExpiry(s.AccessToken); err == nil {
			tok.Expiry = exp
		}
	}
	return tok
}

// GetSession returns the current session, refreshing the access token first
// when it is about to expire.
func (c *Client) GetSession(ctx context.Context) (*model.Session, error) {
	tok, err := c.sessionToken()
	if err != nil {
		var be *apperror.BackendError
		if errors.As(err, &be) {
			// the refresh token was rejected; the session is gone
			return nil, nil
		}
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil, nil
	}
	return newSession(*c.user, tok), nil
}

func newSession(user model.User, tok *oauth2.Token) *model.Session {
	return &model.Session{
		User:         user,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}

// OnAuthStateChange registers fn and immediately reports INITIAL_SESSION with
// the current session.
func (c *Client) OnAuthStateChange(fn repository.AuthListener) repository.Subscription {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	current := c.currentSessionLocked()
	c.mu.Unlock()

	fn(model.EventInitialSession, current)

	return &subscription{unsubscribe: func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}}
}

type subscription struct {
	once        sync.Once
	unsubscribe func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	var resp goTrueSession
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/v1/token",
		query:     url.Values{"grant_type": {"password"}},
		body:      map[string]string{"email": email, "password": password},
		anonymous: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return c.establish(resp, model.EventSignedIn), nil
}

// SignUp registers an identity with username in user_metadata. When the
// project requires email confirmation the returned session is nil.
func (c *Client) SignUp(ctx context.Context, username, email, password string) (*model.User, *model.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"username": username},
	}

	// a session response fills goTrueSession, a bare user fills goTrueUser
	var resp struct {
		goTrueSession
		goTrueUser
	}
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/v1/signup",
		body:      body,
		anonymous: true,
	}, &resp)
	if err != nil {
		return nil, nil, err
	}

	if resp.AccessToken == "" {
		u := resp.goTrueUser.toModel()
		return &u, nil, nil
	}
	session := c.establish(resp.goTrueSession, model.EventSignedIn)
	u := session.User
	return &u, session, nil
}

// SignOut revokes the session remotely, then drops it locally. The local
// session survives a failed revoke.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	signedIn := c.user != nil
	c.mu.Unlock()
	if !signedIn {
		return nil
	}

	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/logout"}, nil)
	if err != nil {
		var be *apperror.BackendError
		// an already invalid session is as good as revoked
		if !errors.As(err, &be) || (be.Status != http.StatusUnauthorized && be.Status != http.StatusNotFound) {
			return err
		}
	}
	c.clearSession()
	return nil
}

// establish installs a new session and notifies listeners.
func (c *Client) establish(resp goTrueSession, event model.AuthEvent) *model.Session {
	tok := resp.token()
	user := resp.User.toModel()

	c.mu.Lock()
	c.user = &user
	c.token = tok
	c.source = oauth2.ReuseTokenSource(tok, &refresher{c: c, refreshToken: tok.RefreshToken})
	c.mu.Unlock()

	session := newSession(user, tok)
	c.emit(event, session)
	return session
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.user = nil
	c.token = nil
	c.source = nil
	c.mu.Unlock()
	c.emit(model.EventSignedOut, nil)
}

// sessionToken returns a valid access token, or nil while signed out.
func (c *Client) sessionToken() (*oauth2.Token, error) {
	c.mu.Lock()
	src := c.source
	c.mu.Unlock()
	if src == nil {
		return nil, nil
	}
	return src.Token()
}

// currentSessionLocked builds the session without refreshing. c.mu must be held.
func (c *Client) currentSessionLocked() *model.Session {
	if c.user == nil || c.token == nil {
		return nil
	}
	return newSession(*c.user, c.token)
}

// emit calls every listener outside the lock.
func (c *Client) emit(event model.AuthEvent, session *model.Session) {
	c.mu.Lock()
	listeners := make([]repository.AuthListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		var s *model.Session
		if session != nil {
			cp := *session
			s = &cp
		}
		fn(event, s)
	}
}

// refresher is the oauth2.TokenSource behind the session. oauth2.ReuseTokenSource
// calls it only when the cached token is about to expire.
//
// REFRESH FLOW:
//
//	sessionToken() → ReuseTokenSource.Token()
//	  cached token valid?  → return it, no network
//	  expired (or < 10s)   → refresher.Token()
//	                           POST /auth/v1/token?grant_type=refresh_token
//	                           200     → store rotated refresh token, emit TOKEN_REFRESHED
//	                           4xx     → refresh token is dead: sign out locally
//	                           5xx/net → keep the session, the next call retries
//
// GoTrue rotates refresh tokens: each one is good for a single exchange, so
// the new token replaces the old one under r.mu before anyone can reuse it.
// The request runs on its own context because ReuseTokenSource has no way
// to pass the caller's.
type refresher struct {
	c *Client

	mu           sync.Mutex
	refreshToken string
}

func (r *refresher) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	var resp goTrueSession
	err := r.c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/v1/token",
		query:     url.Values{"grant_type": {"refresh_token"}},
		body:      map[string]string{"refresh_token": r.refreshToken},
		anonymous: true,
	}, &resp)
	if err != nil {
		var be *apperror.BackendError
		if errors.As(err, &be) && be.Status >= 400 && be.Status < 500 {
			r.c.logger.Info("session refresh rejected, signing out", "error", err)
			r.c.clearSession()
		}
		return nil, err
	}

	tok := resp.token()
	if tok.RefreshToken != "" {
		r.refreshToken = tok.RefreshToken
	}
	user := resp.User.toModel()

	r.c.mu.Lock()
	if r.c.user == nil {
		r.c.mu.Unlock()
		return nil, errors.New("postgrest: signed out during token refresh")
	}
	if user.ID == "" {
		user = *r.c.user
	}
	r.c.user = &user
	r.c.token = tok
	r.c.mu.Unlock()

	r.c.emit(model.EventTokenRefreshed, newSession(user, tok))
	return tok, nil
}
