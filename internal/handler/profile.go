package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/auth"
	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/store"
)

// ProfileHandler edits the loaded profile: its fields, and the Steam link.
//
// The profile store holds whichever profile was viewed last. Edits are only
// allowed when that profile belongs to the signed-in user.
type ProfileHandler struct {
	profiles *store.ProfileStore
	logger   *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(profiles *store.ProfileStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// ProfileResponse carries the profile after an edit.
type ProfileResponse struct {
	store.Result
	Profile store.ProfileSnapshot `json:"profile"`
}

// SteamLinkRequest is the body of PUT /api/profile/steam.
type SteamLinkRequest struct {
	SteamID string `json:"steam_id"`
}

// requireOwner answers 403 unless the loaded profile is the caller's own.
func (h *ProfileHandler) requireOwner(w http.ResponseWriter, r *http.Request) bool {
	user, _ := auth.UserFromContext(r.Context())
	if user == nil || !h.profiles.IsOwnedBy(user.ID) {
		writeError(w, apperror.Forbidden("Você só pode editar o seu próprio perfil."))
		return false
	}
	return true
}

func (h *ProfileHandler) respond(w http.ResponseWriter, res store.Result) {
	if !res.OK {
		writeResult(w, res)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Result: res, Profile: h.profiles.Snapshot()})
}

// HandleUpdate serves PATCH /api/profile with a model.ProfilePatch body.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.requireOwner(w, r) {
		return
	}
	var patch model.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	h.respond(w, h.profiles.UpdateProfile(r.Context(), patch))
}

// HandleLinkSteam serves PUT /api/profile/steam.
func (h *ProfileHandler) HandleLinkSteam(w http.ResponseWriter, r *http.Request) {
	if !h.requireOwner(w, r) {
		return
	}
	var req SteamLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w, h.profiles.LinkSteamAccount(r.Context(), req.SteamID))
}

// HandleUnlinkSteam serves DELETE /api/profile/steam.
func (h *ProfileHandler) HandleUnlinkSteam(w http.ResponseWriter, r *http.Request) {
	if !h.requireOwner(w, r) {
		return
	}
	h.respond(w, h.profiles.UnlinkSteamAccount(r.Context()))
}

// HandleSyncSteam serves POST /api/profile/steam/sync. It blocks for the
// configured sync delay; a client that disconnects cancels the wait.
func (h *ProfileHandler) HandleSyncSteam(w http.ResponseWriter, r *http.Request) {
	if !h.requireOwner(w, r) {
		return
	}
	res := h.profiles.SyncSteamLibrary(r.Context())
	if res.Canceled {
		h.logger.Info("steam sync abandoned by client")
	}
	h.respond(w, res)
}
