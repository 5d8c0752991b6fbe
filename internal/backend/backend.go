// Package backend opens the process-wide client binding. The URL scheme picks
// the implementation: http(s) is a managed Supabase project, sqlite is the
// embedded backend.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/gameshelf/internal/repository"
	"github.com/sakif/gameshelf/internal/repository/postgrest"
	"github.com/sakif/gameshelf/internal/repository/sqlite"
)

// ErrMissingConfig is returned when the URL or key is empty.
var ErrMissingConfig = errors.New("Variáveis de ambiente não foram encontradas, verifique se SUPABASE_URL e SUPABASE_KEY estão definidas")

// Config is the binding's configuration.
type Config struct {
	URL     string
	Key     string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Open returns the backend for cfg.URL.
//
//	https://xyz.supabase.co  → postgrest
//	sqlite://data/app.db     → embedded, file data/app.db
//	sqlite::memory:          → embedded, in memory
func Open(ctx context.Context, cfg Config) (repository.Backend, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.Key) == "" {
		return nil, ErrMissingConfig
	}

	if path, ok := SQLitePath(cfg.URL); ok {
		db, err := sqlite.New(ctx, sqlite.Config{Path: path, ServiceKey: cfg.Key, Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("opening embedded backend: %w", err)
		}
		return db, nil
	}

	switch {
	case strings.HasPrefix(cfg.URL, "http://"), strings.HasPrefix(cfg.URL, "https://"):
		c, err := postgrest.New(postgrest.Config{URL: cfg.URL, Key: cfg.Key, Timeout: cfg.Timeout, Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("opening managed backend: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported backend URL %q: want http(s):// or sqlite://", cfg.URL)
	}
}

// SQLitePath extracts the database path from a sqlite URL.
func SQLitePath(rawURL string) (string, bool) {
	switch {
	case rawURL == "sqlite::memory:":
		return ":memory:", true
	case strings.HasPrefix(rawURL, "sqlite://"):
		path := strings.TrimPrefix(rawURL, "sqlite://")
		return path, path != ""
	default:
		return "", false
	}
}
