package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/gameshelf/internal/auth"
	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/store"
)

// LibraryHandler exposes the library store and the game search.
// Every route sits behind auth.RequireSession.
type LibraryHandler struct {
	library *store.LibraryStore
	logger  *slog.Logger
}

// NewLibraryHandler creates a LibraryHandler.
func NewLibraryHandler(library *store.LibraryStore, logger *slog.Logger) *LibraryHandler {
	return &LibraryHandler{library: library, logger: logger}
}

// SearchResponse is the body of GET /api/games/search.
type SearchResponse struct {
	store.Result
	Results []model.SearchResult `json:"results"`
}

// HandleSearch serves GET /api/games/search?q=.
//
// A newer search cancels this one; the superseded request still gets a 200,
// with canceled set and no results, and the view drops it.
func (h *LibraryHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	results, res := h.library.SearchGames(r.Context(), r.URL.Query().Get("q"))
	if !res.OK && !res.Canceled {
		writeResult(w, res)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Result: res, Results: results})
}

// HandleClearSearch serves DELETE /api/games/search.
func (h *LibraryHandler) HandleClearSearch(w http.ResponseWriter, r *http.Request) {
	h.library.ClearSearch()
	w.WriteHeader(http.StatusNoContent)
}

// AddGameRequest is the body of POST /api/library.
type AddGameRequest struct {
	GameID   string         `json:"game_id"`
	Status   model.Status   `json:"status"`
	Platform model.Platform `json:"platform"`
}

// LibraryResponse carries the collection after a mutation.
type LibraryResponse struct {
	store.Result
	Library store.LibrarySnapshot `json:"library"`
}

// HandleAdd serves POST /api/library. The item always belongs to the
// signed-in user; the body cannot name another one.
func (h *LibraryHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req AddGameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := h.library.AddGameToLibrary(r.Context(), user.ID, req.GameID, req.Status, req.Platform)
	if !res.OK {
		writeResult(w, res)
		return
	}
	writeJSON(w, http.StatusCreated, LibraryResponse{Result: res, Library: h.library.Snapshot()})
}

// HandleUpdate serves PATCH /api/library/{id} with a model.LibraryPatch body.
// Ownership is enforced by the backend, which reports another user's item as
// forbidden or missing.
func (h *LibraryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.LibraryPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	res := h.library.UpdateLibraryItem(r.Context(), chi.URLParam(r, "id"), patch)
	if !res.OK {
		writeResult(w, res)
		return
	}
	writeJSON(w, http.StatusOK, LibraryResponse{Result: res, Library: h.library.Snapshot()})
}

// HandleRemove serves DELETE /api/library/{id}.
func (h *LibraryHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	res := h.library.RemoveLibraryItem(r.Context(), chi.URLParam(r, "id"))
	if !res.OK {
		writeResult(w, res)
		return
	}
	writeJSON(w, http.StatusOK, LibraryResponse{Result: res, Library: h.library.Snapshot()})
}

// HandleStats serves GET /api/library/stats, computed over the collection
// currently loaded.
func (h *LibraryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.library.Stats())
}
