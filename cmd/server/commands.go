package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/backend"
	"github.com/sakif/gameshelf/internal/config"
	"github.com/sakif/gameshelf/internal/logging"
	"github.com/sakif/gameshelf/internal/model"
	"github.com/sakif/gameshelf/internal/repository/sqlite"
	"github.com/sakif/gameshelf/internal/server"
)

// setup loads the configuration and builds the logger. The returned closer
// flushes the log file, if any.
func setup() (config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger, closer := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	return cfg, logger, closer, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	srv, err := server.New(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}
	// Start blocks until SIGINT/SIGTERM and closes the backend on its way out
	return srv.Start()
}

// embeddedPath returns the sqlite database path configured in SUPABASE_URL.
func embeddedPath(cfg config.Config) (string, error) {
	path, ok := backend.SQLitePath(cfg.SupabaseURL)
	if !ok {
		return "", fmt.Errorf("SUPABASE_URL %q is not an embedded backend (want sqlite://path)", cfg.SupabaseURL)
	}
	if path == ":memory:" {
		return "", errors.New("an in-memory database cannot be migrated or seeded")
	}
	return path, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations to the embedded backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			path, err := embeddedPath(cfg)
			if err != nil {
				return err
			}
			if err := sqlite.Migrate(cmd.Context(), path, logger); err != nil {
				return fmt.Errorf("migrating %s: %w", path, err)
			}
			logger.Info("migrations applied", slog.String("database", path))
			return nil
		},
	}
}

func newSeedGamesCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-games",
		Short: "Load a JSON game catalog into the embedded backend",
		Long: `Reads a JSON array of games:

  [{"title": "Hollow Knight", "cover_url": "https://...", "release_date": "2017-02-24", "steam_app_id": 367520}]

Games whose Steam app id is already in the catalog are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			path, err := embeddedPath(cfg)
			if err != nil {
				return err
			}
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("opening catalog: %w", err)
			}
			defer f.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := sqlite.New(ctx, sqlite.Config{Path: path, ServiceKey: cfg.SupabaseKey, Logger: logger})
			if err != nil {
				return err
			}
			defer db.Close()

			added, skipped, err := seedGames(ctx, db, f, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d games added, %d skipped\n", added, skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the JSON catalog")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// gameAdder is the part of the embedded backend seeding needs.
type gameAdder interface {
	AddGame(ctx context.Context, g *model.Game) error
}

// seedGames adds every game in the JSON array read from r. Duplicates are
// skipped; any other failure stops the run.
func seedGames(ctx context.Context, db gameAdder, r io.Reader, logger *slog.Logger) (added, skipped int, err error) {
	var games []model.Game
	if err := json.NewDecoder(r).Decode(&games); err != nil {
		return 0, 0, fmt.Errorf("decoding catalog: %w", err)
	}

	for i := range games {
		g := games[i]
		g.ID = ""
		switch err := db.AddGame(ctx, &g); {
		case err == nil:
			added++
		case errors.Is(err, apperror.ErrConflict):
			logger.Warn("game already in catalog", slog.String("title", g.Title))
			skipped++
		default:
			return added, skipped, fmt.Errorf("adding %q: %w", g.Title, err)
		}
	}
	return added, skipped, nil
}
