package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/gameshelf/internal/auth"
	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/router"
	"github.com/sakif/gameshelf/internal/store"
)

// PageHandler serves the view models of the four pages. The router guard runs
// before every one of them, so by the time a handler runs the session is
// initialized and the visitor is allowed on the page.
type PageHandler struct {
	session  *store.AuthStore
	library  *store.LibraryStore
	profiles *store.ProfileStore
	logger   *slog.Logger
}

// NewPageHandler creates a PageHandler over the process-wide stores.
func NewPageHandler(session *store.AuthStore, library *store.LibraryStore, profiles *store.ProfileStore, logger *slog.Logger) *PageHandler {
	return &PageHandler{session: session, library: library, profiles: profiles, logger: logger}
}

// GuestPage is the view model of the login and register pages.
type GuestPage struct {
	Page string `json:"page"`
}

// HomePage is the signed-in user's own library.
type HomePage struct {
	Page    string                `json:"page"`
	User    *model.User           `json:"user"`
	Library store.LibrarySnapshot `json:"library"`
}

// ProfilePage is a user's public page: profile, library and stats.
type ProfilePage struct {
	Page    string                 `json:"page"`
	User    *model.User            `json:"user"`
	Profile store.ProfileSnapshot  `json:"profile"`
	IsOwner bool                   `json:"isOwner"`
	Library *store.LibrarySnapshot `json:"library,omitempty"`
}

// HandleLogin serves GET /login.
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GuestPage{Page: "login"})
}

// HandleRegister serves GET /register.
func (h *PageHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GuestPage{Page: "register"})
}

// HandleHome serves GET /: the signed-in user's library, freshly fetched.
// A failed fetch still renders the page; the message is in library.error.
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	user := h.session.User()
	if user == nil {
		// the guard lets nobody here signed out; the session ended mid-request
		http.Redirect(w, r, router.PathLogin, http.StatusSeeOther)
		return
	}

	h.library.FetchLibrary(r.Context(), user.ID)
	writeJSON(w, http.StatusOK, HomePage{
		Page:    "home",
		User:    user,
		Library: h.library.Snapshot(),
	})
}

// HandleProfile serves GET /user/{username}.
//
// An unknown username answers 404 with userNotFound set. A failed lookup
// answers 502 and leaves whatever profile was loaded before.
func (h *PageHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, _ := auth.UserFromContext(r.Context())
	if user == nil {
		user = h.session.User()
	}

	res := h.profiles.FetchProfile(r.Context(), username)
	snap := h.profiles.Snapshot()
	page := ProfilePage{Page: "profile", User: user, Profile: snap}

	switch {
	case snap.UserNotFound:
		writeJSON(w, http.StatusNotFound, page)
		return
	case !res.OK:
		writeResult(w, res)
		return
	case snap.Profile == nil:
		// another request cleared the store between the fetch and the snapshot
		writeJSON(w, http.StatusNotFound, page)
		return
	}

	h.library.FetchLibrary(r.Context(), snap.Profile.ID)
	lib := h.library.Snapshot()
	page.Library = &lib
	if user != nil {
		page.IsOwner = h.profiles.IsOwnedBy(user.ID)
	}
	writeJSON(w, http.StatusOK, page)
}
