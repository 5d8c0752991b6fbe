// Package sqlite is the embedded backend: the same repository contract as the
// managed backend, stored in a local SQLite file.
//
// It exists for development and tests. Behavior the stores depend on is kept
// identical to the managed backend:
//   - a duplicate (user_id, game_id) fails with SQLSTATE 23505
//   - sign-up stores the username as identity metadata and creates the profile
//   - writes are limited to the signed-in user's own rows
//
// The driver is modernc.org/sqlite (pure Go, no cgo). The schema lives in
// migrations/ and is applied with goose on open.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/auth"
	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

// compile-time check that *DB is a complete backend
var _ repository.Backend = (*DB)(nil)

// Config configures the embedded backend.
type Config struct {
	// Path is the database file, or ":memory:".
	Path string
	// ServiceKey signs session tokens. At least 16 characters.
	ServiceKey string
	// Passwords overrides the bcrypt cost (tests). Nil uses the default.
	Passwords *auth.PasswordService
	Logger    *slog.Logger
}

// DB is the embedded backend. It holds the connection pool plus the client
// side of the auth session, like the managed backend's client does.
type DB struct {
	conn      *sql.DB
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	mu        sync.Mutex
	session   *model.Session
	listeners map[int]repository.AuthListener
	nextSub   int
}

// New opens the database, applies migrations and returns the backend.
func New(ctx context.Context, cfg Config) (*DB, error) {
	tokens, err := auth.NewTokenService(cfg.ServiceKey)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	passwords := cfg.Passwords
	if passwords == nil {
		passwords = auth.NewPasswordService()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := open(ctx, cfg.Path)
	if err != nil {
		return nil, err
	}

	if err := migrate(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{
		conn:      conn,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		listeners: make(map[int]repository.AuthListener),
	}, nil
}

// Migrate applies pending migrations to the database at path and closes it.
func Migrate(ctx context.Context, path string, logger *slog.Logger) error {
	conn, err := open(ctx, path)
	if err != nil {
		return err
	}
	defer conn.Close()
	return migrate(ctx, conn, logger)
}

// open creates the pool. SQLite serializes writers anyway and ":memory:" gives
// every connection its own database, so the pool is capped at one connection.
func open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite: database path is required")
	}
	if path != ":memory:" {
		// like `mkdir -p`: the data directory may not exist on first run
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating database directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return conn, nil
}

// migrate applies the embedded migrations with a goose Provider owned by this
// call, so backends opened side by side do not share goose's package state.
func migrate(ctx context.Context, conn *sql.DB, logger *slog.Logger) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("reading embedded migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, fsys,
		goose.WithSlog(logger.With(slog.String("component", "goose"))),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	if len(results) > 0 {
		logger.Debug("migrations applied", slog.Int("count", len(results)))
	}
	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// currentUserID returns the signed-in user's id, or an unauthorized backend error.
func (db *DB) currentUserID() (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.session == nil {
		return "", &apperror.BackendError{Status: 401, Code: "not_authenticated", Message: "not signed in"}
	}
	return db.session.User.ID, nil
}

// rowLevelSecurity is the error the managed backend reports when a row policy
// rejects a write.
func rowLevelSecurity(table string) error {
	return &apperror.BackendError{
		Status:  403,
		Code:    "42501",
		Message: fmt.Sprintf("new row violates row-level security policy for table %q", table),
	}
}
