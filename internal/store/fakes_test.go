package store

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAuth is an in-memory AuthRepository.
type fakeAuth struct {
	mu sync.Mutex

	session    *model.Session
	sessionErr error
	signInErr  error
	signUpErr  error
	signOutErr error
	// confirm makes SignUp return no session
	confirm bool

	getSessionCalls int
	subscribeCalls  int
	signUpCalls     int
	listener        repository.AuthListener
	unsubscribed    bool
}

func (f *fakeAuth) GetSession(ctx context.Context) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getSessionCalls++
	return f.session, f.sessionErr
}

func (f *fakeAuth) OnAuthStateChange(fn repository.AuthListener) repository.Subscription {
	f.mu.Lock()
	f.subscribeCalls++
	f.listener = fn
	f.mu.Unlock()
	return subscriptionFunc(func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.mu.Unlock()
	})
}

type subscriptionFunc func()

func (fn subscriptionFunc) Unsubscribe() { fn() }

func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	username := "mario"
	if email == "nameless@example.com" {
		username = ""
	}
	f.session = &model.Session{User: model.User{ID: "u1", Email: email, Username: username}, AccessToken: "tok"}
	return f.session, nil
}

func (f *fakeAuth) SignUp(ctx context.Context, username, email, password string) (*model.User, *model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUpCalls++
	if f.signUpErr != nil {
		return nil, nil, f.signUpErr
	}
	u := model.User{ID: "u2", Email: email, Username: username}
	if f.confirm {
		return &u, nil, nil
	}
	f.session = &model.Session{User: u, AccessToken: "tok"}
	return &u, f.session, nil
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.session = nil
	return nil
}

// emit delivers an auth event like the backend would.
func (f *fakeAuth) emit(event model.AuthEvent, s *model.Session) {
	f.mu.Lock()
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(event, s)
	}
}

// fakeNav records pushed paths and lands on them.
type fakeNav struct {
	mu    sync.Mutex
	paths []string
}

func (n *fakeNav) Push(ctx context.Context, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
	return nil
}

func (n *fakeNav) pushed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// fakeLibrary is an in-memory LibraryBackend.
type fakeLibrary struct {
	mu sync.Mutex

	items     []model.LibraryItem
	listErr   error
	insertErr error
	updateErr error
	deleteErr error

	listCalls   int
	insertCalls int
	updateCalls int
	deleteCalls int

	// search returns the results for a query; it may block.
	search      func(ctx context.Context, query string) ([]model.SearchResult, error)
	searchCalls []string
}

func (f *fakeLibrary) ListLibrary(ctx context.Context, userID string) ([]model.LibraryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.LibraryItem(nil), f.items...), nil
}

func (f *fakeLibrary) InsertLibraryItem(ctx context.Context, item model.NewLibraryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return f.insertErr
	}
	playtime := item.PlaytimeMinutes
	f.items = append([]model.LibraryItem{{
		ID:              "new-" + item.GameID,
		UserID:          item.UserID,
		GameID:          item.GameID,
		Status:          item.Status,
		Platform:        item.Platform,
		PlaytimeMinutes: &playtime,
		Game:            model.GameSummary{Title: "Game " + item.GameID},
	}}, f.items...)
	return nil
}

func (f *fakeLibrary) UpdateLibraryItem(ctx context.Context, id string, patch model.LibraryPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	return f.updateErr
}

func (f *fakeLibrary) DeleteLibraryItem(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeLibrary) SearchGames(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, query)
	search := f.search
	f.mu.Unlock()
	if search == nil {
		return []model.SearchResult{{ID: "g-" + query, Title: query}}, nil
	}
	return search(ctx, query)
}

func (f *fakeLibrary) searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searchCalls...)
}

// fakeProfiles is an in-memory ProfileRepository.
type fakeProfiles struct {
	mu sync.Mutex

	profiles    map[string]model.Profile
	getErr      error
	updateErr   error
	updateCalls int
}

func (f *fakeProfiles) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[username]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProfiles) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	return f.updateErr
}

func (f *fakeProfiles) updates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateCalls
}
