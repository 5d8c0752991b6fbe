package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/repository"
)

// DefaultSteamSyncDelay is how long the Steam sync placeholder takes.
const DefaultSteamSyncDelay = 1500 * time.Millisecond

// ProfileSnapshot is a consistent copy of the store for rendering.
type ProfileSnapshot struct {
	Profile      *model.Profile `json:"profile"`
	Loading      bool           `json:"loading"`
	UserNotFound bool           `json:"userNotFound"`
	Syncing      bool           `json:"syncing"`
}

// ProfileStore holds the profile being viewed.
type ProfileStore struct {
	repo      repository.ProfileRepository
	logger    *slog.Logger
	syncDelay time.Duration

	mu       sync.Mutex
	profile  *model.Profile
	pending  int
	notFound bool
	syncing  bool
}

// NewProfileStore creates an empty store. syncDelay <= 0 uses DefaultSteamSyncDelay.
func NewProfileStore(repo repository.ProfileRepository, syncDelay time.Duration, logger *slog.Logger) *ProfileStore {
	if syncDelay <= 0 {
		syncDelay = DefaultSteamSyncDelay
	}
	return &ProfileStore{repo: repo, logger: logger, syncDelay: syncDelay}
}

// FetchProfile loads the profile with the given username. A missing profile
// sets UserNotFound and clears the profile; a failed lookup is only logged
// and leaves both as they were.
func (s *ProfileStore) FetchProfile(ctx context.Context, username string) Result {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	p, err := s.repo.GetProfileByUsername(ctx, username)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if err != nil {
		s.logger.Error("fetching profile", "username", username, "error", err)
		s.notFound = false
		return remote(err)
	}
	if p == nil {
		s.notFound = true
		s.profile = nil
		return Result{}
	}
	s.notFound = false
	s.profile = p
	return ok()
}

// UpdateProfile persists patch for the loaded profile, then merges it locally.
func (s *ProfileStore) UpdateProfile(ctx context.Context, patch model.ProfilePatch) Result {
	s.mu.Lock()
	if s.profile == nil {
		s.mu.Unlock()
		return failed(&apperror.AppError{Err: apperror.ErrNotFound, Message: MsgNoProfile}, MsgNoProfile)
	}
	id := s.profile.ID
	s.mu.Unlock()

	if patch.Username != nil && !model.ValidUsername(*patch.Username) {
		return invalid(MsgInvalidUsername)
	}
	if patch.SteamID != nil && *patch.SteamID != "" && !model.ValidSteamID(*patch.SteamID) {
		return invalid(MsgInvalidSteamID)
	}
	if patch.Empty() {
		return ok()
	}

	if err := s.repo.UpdateProfile(ctx, id, patch); err != nil {
		s.logger.Error("updating profile", "profile_id", id, "error", err)
		return remote(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another profile may have been loaded while the update was in flight
	if s.profile != nil && s.profile.ID == id {
		s.profile.Apply(patch)
	}
	return ok()
}

// LinkSteamAccount stores a SteamID64 on the loaded profile. The format is
// checked before any remote call.
func (s *ProfileStore) LinkSteamAccount(ctx context.Context, steamID string) Result {
	if !model.ValidSteamID(steamID) {
		return invalid(MsgInvalidSteamID)
	}
	r := s.UpdateProfile(ctx, model.ProfilePatch{SteamID: &steamID})
	if !r.OK {
		s.logger.Warn("linking steam account", "reason", r.Message)
		return failed(r.Err, MsgSteamLinkFailed)
	}
	return r
}

// UnlinkSteamAccount clears the linked SteamID.
func (s *ProfileStore) UnlinkSteamAccount(ctx context.Context) Result {
	empty := ""
	return s.UpdateProfile(ctx, model.ProfilePatch{SteamID: &empty})
}

// SyncSteamLibrary is a placeholder for importing the Steam library: it
// requires a linked account, holds the syncing flag for the configured delay
// and succeeds. Canceling ctx ends the wait early.
func (s *ProfileStore) SyncSteamLibrary(ctx context.Context) Result {
	s.mu.Lock()
	if s.profile == nil || s.profile.SteamID == nil {
		s.mu.Unlock()
		return invalid(MsgSteamNotLinked)
	}
	if s.syncing {
		s.mu.Unlock()
		return failed(&apperror.AppError{Err: apperror.ErrConflict, Message: MsgSyncInProgress}, MsgSyncInProgress)
	}
	s.syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	// TODO: fetch owned games from the Steam Web API (IPlayerService/GetOwnedGames) and upsert them as BACKLOG items.
	t := time.NewTimer(s.syncDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return ok()
	case <-ctx.Done():
		return canceled()
	}
}

// Profile returns a copy of the loaded profile, or nil.
func (s *ProfileStore) Profile() *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// UserNotFound reports whether the last fetch found no such username.
func (s *ProfileStore) UserNotFound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notFound
}

// IsOwnedBy reports whether the loaded profile belongs to userID.
func (s *ProfileStore) IsOwnedBy(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile != nil && userID != "" && s.profile.ID == userID
}

// Snapshot copies the whole store.
func (s *ProfileStore) Snapshot() ProfileSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := ProfileSnapshot{
		Loading:      s.pending > 0,
		UserNotFound: s.notFound,
		Syncing:      s.syncing,
	}
	if s.profile != nil {
		p := *s.profile
		snap.Profile = &p
	}
	return snap
}
