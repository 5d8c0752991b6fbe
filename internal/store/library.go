package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/repository"
)

const (
	// SearchLimit caps game search results.
	SearchLimit = 10
	// MinSearchLength is the shortest query sent to the backend, in runes.
	MinSearchLength = 2
)

// LibraryBackend is what the library store reads and writes.
type LibraryBackend interface {
	repository.LibraryRepository
	repository.GameRepository
}

// LibrarySnapshot is a consistent copy of the store for rendering.
type LibrarySnapshot struct {
	Items         []model.LibraryItem  `json:"items"`
	SearchResults []model.SearchResult `json:"searchResults"`
	Loading       bool                 `json:"loading"`
	SearchLoading bool                 `json:"searchLoading"`
	Error         string               `json:"error,omitempty"`
	Stats         model.Stats          `json:"stats"`
}

// LibraryStore holds the signed-in user's collection and the game search.
type LibraryStore struct {
	repo     LibraryBackend
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	items   []model.LibraryItem
	results []model.SearchResult
	pending int
	errMsg  string

	searching    bool
	searchSeq    uint64
	searchCancel context.CancelFunc
}

// NewLibraryStore creates an empty store. A positive debounce delays each
// search and lets a newer one supersede it before any remote call.
func NewLibraryStore(repo LibraryBackend, debounce time.Duration, logger *slog.Logger) *LibraryStore {
	return &LibraryStore{
		repo:     repo,
		logger:   logger,
		debounce: debounce,
		items:    []model.LibraryItem{},
		results:  []model.SearchResult{},
	}
}

func (s *LibraryStore) begin() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
}

// end must be called with s.mu held.
func (s *LibraryStore) end() {
	s.pending--
}

// FetchLibrary replaces the collection with the user's rows, newest first.
// On failure the collection is emptied and the message kept in Error.
// Overlapping fetches are not ordered: the last one to finish wins.
func (s *LibraryStore) FetchLibrary(ctx context.Context, userID string) Result {
	s.begin()
	items, err := s.repo.ListLibrary(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.end()
	if err != nil {
		s.logger.Error("fetching library", "user_id", userID, "error", err)
		s.errMsg = apperror.Message(err)
		s.items = []model.LibraryItem{}
		return failed(err, s.errMsg)
	}
	if items == nil {
		items = []model.LibraryItem{}
	}
	s.items = items
	s.errMsg = ""
	return ok()
}

// AddGameToLibrary inserts the game with zero playtime, then refetches so the
// new row carries its game summary. A duplicate is reported with a friendly
// message and leaves the collection unchanged.
func (s *LibraryStore) AddGameToLibrary(ctx context.Context, userID, gameID string, status model.Status, platform model.Platform) Result {
	switch {
	case userID == "":
		return failed(apperror.Unauthorized(MsgNotSignedIn), MsgNotSignedIn)
	case gameID == "":
		return invalid(MsgMissingGame)
	case !status.Valid():
		return invalid(MsgInvalidStatus)
	case !platform.Valid():
		return invalid(MsgInvalidPlatform)
	}

	s.begin()
	err := s.repo.InsertLibraryItem(ctx, model.NewLibraryItem{
		UserID:          userID,
		GameID:          gameID,
		Status:          status,
		Platform:        platform,
		PlaytimeMinutes: 0,
	})
	s.mu.Lock()
	s.end()
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return failed(err, MsgDuplicateGame)
		}
		s.logger.Error("adding game to library", "game_id", gameID, "error", err)
		return remote(err)
	}

	// the insert stands even if the refetch fails; FetchLibrary records that
	s.FetchLibrary(ctx, userID)
	return ok()
}

// UpdateLibraryItem persists patch, then merges it into the local item in
// place without refetching.
func (s *LibraryStore) UpdateLibraryItem(ctx context.Context, itemID string, patch model.LibraryPatch) Result {
	if err := patch.Validate(); err != nil {
		return invalid(err.Error())
	}
	if patch.Empty() {
		return ok()
	}

	s.begin()
	err := s.repo.UpdateLibraryItem(ctx, itemID, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.end()
	if err != nil {
		s.logger.Error("updating library item", "item_id", itemID, "error", err)
		return remote(err)
	}
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items[i].Apply(patch)
			break
		}
	}
	return ok()
}

// RemoveLibraryItem deletes remotely, then drops the local item.
func (s *LibraryStore) RemoveLibraryItem(ctx context.Context, itemID string) Result {
	s.begin()
	err := s.repo.DeleteLibraryItem(ctx, itemID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.end()
	if err != nil {
		s.logger.Error("removing library item", "item_id", itemID, "error", err)
		return remote(err)
	}
	kept := s.items[:0:0]
	for _, it := range s.items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	s.items = kept
	return ok()
}

// SearchGames is single-flight: starting a search cancels the one in flight,
// and a superseded search never applies its results, even when the backend
// ignored the cancellation. Queries shorter than MinSearchLength runes clear
// the results without a remote call.
//
// It returns the results this call applied, so callers never read back a
// newer search's results from the shared state. They are empty unless the
// Result is OK.
func (s *LibraryStore) SearchGames(ctx context.Context, query string) ([]model.SearchResult, Result) {
	s.mu.Lock()
	if s.searchCancel != nil {
		s.searchCancel()
		s.searchCancel = nil
	}
	s.searchSeq++
	seq := s.searchSeq

	if utf8.RuneCountInString(query) < MinSearchLength {
		s.results = []model.SearchResult{}
		s.searching = false
		s.mu.Unlock()
		return []model.SearchResult{}, ok()
	}

	sctx, cancel := context.WithCancel(ctx)
	s.searchCancel = cancel
	s.searching = true
	s.mu.Unlock()
	defer cancel()

	if s.debounce > 0 {
		t := time.NewTimer(s.debounce)
		select {
		case <-t.C:
		case <-sctx.Done():
			t.Stop()
			return s.finishSearch(seq, nil, sctx.Err())
		}
	}

	results, err := s.repo.SearchGames(sctx, query, SearchLimit)
	if err == nil && sctx.Err() != nil {
		err = sctx.Err()
	}
	return s.finishSearch(seq, results, err)
}

func (s *LibraryStore) finishSearch(seq uint64, results []model.SearchResult, err error) ([]model.SearchResult, Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	none := []model.SearchResult{}
	if seq != s.searchSeq {
		// a newer search (or ClearSearch) owns the results and the flag now
		return none, canceled()
	}
	s.searching = false
	s.searchCancel = nil

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return none, canceled()
		}
		s.logger.Error("searching games", "error", err)
		return none, remote(err)
	}
	if results == nil {
		results = none
	}
	s.results = results
	return append([]model.SearchResult{}, results...), ok()
}

// ClearSearch empties the results and cancels a search in flight.
func (s *LibraryStore) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchCancel != nil {
		s.searchCancel()
		s.searchCancel = nil
	}
	s.searchSeq++
	s.searching = false
	s.results = []model.SearchResult{}
}

// Stats computes the aggregates over the current collection.
func (s *LibraryStore) Stats() model.Stats {
	s.mu.Lock()
	items := append([]model.LibraryItem(nil), s.items...)
	s.mu.Unlock()
	return model.ComputeStats(items)
}

// Items returns a copy of the collection.
func (s *LibraryStore) Items() []model.LibraryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LibraryItem{}, s.items...)
}

// SearchResults returns a copy of the latest applied search results.
func (s *LibraryStore) SearchResults() []model.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SearchResult{}, s.results...)
}

// Snapshot copies the whole store.
func (s *LibraryStore) Snapshot() LibrarySnapshot {
	s.mu.Lock()
	snap := LibrarySnapshot{
		Items:         append([]model.LibraryItem{}, s.items...),
		SearchResults: append([]model.SearchResult{}, s.results...),
		Loading:       s.pending > 0,
		SearchLoading: s.searching,
		Error:         s.errMsg,
	}
	s.mu.Unlock()
	snap.Stats = model.ComputeStats(snap.Items)
	return snap
}
