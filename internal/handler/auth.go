package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gameshelf/internal/store"
)

// AuthHandler runs the credential actions: sign-in, sign-up and sign-out.
//
// Each answers the store.Result as JSON. On success Redirect is where the
// guarded navigation landed, and the view follows it.
type AuthHandler struct {
	session *store.AuthStore
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(session *store.AuthStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{session: session, logger: logger}
}

// CredentialsRequest is the body of POST /login and POST /register.
type CredentialsRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignIn serves POST /login.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := h.session.SignIn(r.Context(), req.Email, req.Password)
	if !res.OK {
		h.logger.Info("sign-in rejected", slog.String("email", req.Email))
	}
	writeResult(w, res)
}

// HandleSignUp serves POST /register.
//
// When the backend asks for email confirmation first, the result is OK with
// a notice in Message and Redirect pointing at the login page.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, h.session.SignUp(r.Context(), req.Username, req.Email, req.Password))
}

// HandleSignOut serves POST /logout. A failed revoke keeps the user signed in
// and answers with the backend's message.
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.session.SignOut(r.Context()))
}
