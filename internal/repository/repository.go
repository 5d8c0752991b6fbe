// Package repository declares the contract the stores consume from the backend.
//
// Two implementations exist: postgrest (the managed Supabase backend over REST)
// and sqlite (an embedded stand-in with the same semantics). internal/backend
// picks one from configuration.
package repository

import (
	"context"
	"io"

	"github.com/sakif/gameshelf/internal/model"
)

// AuthListener receives auth state changes. session is nil after sign-out.
type AuthListener func(event model.AuthEvent, session *model.Session)

// Subscription is a live auth listener registration.
type Subscription interface {
	// Unsubscribe stops delivery. Calling it more than once is harmless.
	Unsubscribe()
}

// AuthRepository is the identity half of the backend.
type AuthRepository interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*model.Session, error)
	OnAuthStateChange(fn AuthListener) Subscription
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	// SignUp registers an identity with username stored as metadata. The session
	// is nil when the backend requires email confirmation first.
	SignUp(ctx context.Context, username, email, password string) (*model.User, *model.Session, error)
	SignOut(ctx context.Context) error
}

// LibraryRepository reads and writes library_items.
type LibraryRepository interface {
	// ListLibrary returns the user's items with the embedded game summary,
	// most recently updated first.
	ListLibrary(ctx context.Context, userID string) ([]model.LibraryItem, error)
	// InsertLibraryItem fails with an apperror.ErrConflict error when the
	// (user, game) pair already exists.
	InsertLibraryItem(ctx context.Context, item model.NewLibraryItem) error
	UpdateLibraryItem(ctx context.Context, id string, patch model.LibraryPatch) error
	DeleteLibraryItem(ctx context.Context, id string) error
}

// GameRepository searches the game catalog.
type GameRepository interface {
	// SearchGames matches titles case-insensitively. It must honor ctx
	// cancellation and return an error wrapping context.Canceled when aborted.
	SearchGames(ctx context.Context, query string, limit int) ([]model.SearchResult, error)
}

// ProfileRepository reads and writes profiles.
type ProfileRepository interface {
	// GetProfileByUsername returns (nil, nil) when no profile has that username.
	GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) error
}

// Backend is the process-wide client binding.
type Backend interface {
	AuthRepository
	LibraryRepository
	GameRepository
	ProfileRepository
	io.Closer
}
