// Package server is the composition root: it opens the backend, builds the
// stores and the router guard, mounts the handlers and runs the HTTP server.
//
// ROUTES:
//
//	GET    /login, /register          guest-only pages   (router guard, 303)
//	GET    /, /user/{username}        auth-required pages
//	POST   /login, /register          credential actions (rate limited per IP)
//	POST   /logout
//	       /api/...                   JSON API           (401 without a session)
//
// MIDDLEWARE ORDER:
// RequestID → [RealIP] → Logger → Recoverer → CORS, then per group: the guard
// on pages, the limiter on credentials, RequireSession on the API. RealIP is
// only mounted with TRUST_PROXY; otherwise the limiter keys on the socket
// address, since anyone can send X-Forwarded-For.
//
// Every POST, PUT, PATCH and DELETE goes through RequireJSON so that a
// cross-origin caller cannot skip the CORS preflight.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/sakif/gameshelf/internal/auth"
	"github.com/sakif/gameshelf/internal/backend"
	"github.com/sakif/gameshelf/internal/config"
	"github.com/sakif/gameshelf/internal/handler"
	"github.com/sakif/gameshelf/internal/middleware"
	"github.com/sakif/gameshelf/internal/repository"
	"github.com/sakif/gameshelf/internal/router"
	"github.com/sakif/gameshelf/internal/store"
)

// devOrigins are allowed in development when ALLOWED_ORIGINS is empty: the
// Vite dev server the frontend runs on.
var devOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

const (
	// credentialRate allows a burst of credentialBurst attempts, then one
	// every 12 seconds per IP.
	credentialRate  = rate.Limit(1.0 / 12)
	credentialBurst = 5
	limiterTTL      = 10 * time.Minute
	shutdownTimeout = 30 * time.Second
)

// Server owns the backend handle and everything built on it.
type Server struct {
	mux     *chi.Mux
	config  config.Config
	logger  *slog.Logger
	backend repository.Backend

	session  *store.AuthStore
	library  *store.LibraryStore
	profiles *store.ProfileStore
	nav      *router.Router
	limiter  *middleware.IPRateLimiter
	stop     chan struct{}
}

// New opens the backend named by cfg and wires the application. It fails when
// the backend configuration is missing or the backend cannot be opened.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	be, err := backend.Open(ctx, backend.Config{
		URL:     cfg.SupabaseURL,
		Key:     cfg.SupabaseKey,
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening backend: %w", err)
	}
	return NewWithBackend(cfg, be, logger), nil
}

// NewWithBackend wires the application over an already open backend. The
// server takes ownership of be and closes it in Close.
//
// DEPENDENCY WIRING:
//
//	repository.Backend (sqlite or postgrest, picked by backend.Open)
//	  ├─ AuthStore ←──────┐ SetNavigator: auth events trigger redirects
//	  │    └─ router.Router (guard, reads the session through the store)
//	  ├─ LibraryStore
//	  └─ ProfileStore
//	handlers take the stores; the stores never see HTTP.
//
// AuthStore and Router point at each other, so the store is built first and
// handed its navigator afterwards. Everything is constructed here and nowhere
// else: tests build the same graph over an in-memory backend.
func NewWithBackend(cfg config.Config, be repository.Backend, logger *slog.Logger) *Server {
	session := store.NewAuthStore(be, logger)
	nav := router.New(session, logger)
	session.SetNavigator(nav)

	s := &Server{
		mux:      chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		backend:  be,
		session:  session,
		library:  store.NewLibraryStore(be, cfg.SearchDebounce, logger),
		profiles: store.NewProfileStore(be, cfg.SteamSyncDelay, logger),
		nav:      nav,
		limiter:  middleware.NewIPRateLimiter(credentialRate, credentialBurst, limiterTTL, logger),
		stop:     make(chan struct{}),
	}
	go s.limiter.Run(time.Minute, s.stop)
	s.setupRoutes()
	return s
}

func (s *Server) corsOptions() cors.Options {
	origins := s.config.AllowedOrigins
	if s.config.IsDevelopment() && len(origins) == 0 {
		origins = devOrigins
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Location", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func (s *Server) setupRoutes() {
	s.mux.Use(chimiddleware.RequestID)
	if s.config.TrustProxy {
		s.mux.Use(chimiddleware.RealIP)
	}
	s.mux.Use(middleware.Logger(s.logger))
	s.mux.Use(chimiddleware.Recoverer)
	s.mux.Use(cors.New(s.corsOptions()).Handler)

	pages := handler.NewPageHandler(s.session, s.library, s.profiles, s.logger)
	authHandler := handler.NewAuthHandler(s.session, s.logger)
	libraryHandler := handler.NewLibraryHandler(s.library, s.logger)
	profileHandler := handler.NewProfileHandler(s.profiles, s.logger)

	// === Pages ===
	s.mux.Group(func(r chi.Router) {
		r.Use(s.nav.Middleware)
		r.Use(auth.Attach(s.session))
		r.Get(router.PathLogin, pages.HandleLogin)
		r.Get(router.PathRegister, pages.HandleRegister)
		r.Get(router.PathHome, pages.HandleHome)
		r.Get("/user/{username}", pages.HandleProfile)
	})

	// === Credential actions ===
	s.mux.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Use(middleware.RequireJSON)
		r.Post(router.PathLogin, authHandler.HandleSignIn)
		r.Post(router.PathRegister, authHandler.HandleSignUp)
	})
	s.mux.With(middleware.RequireJSON).Post("/logout", authHandler.HandleSignOut)

	// === API ===
	s.mux.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireJSON)
		r.Use(auth.RequireSession(s.session))

		r.Get("/games/search", libraryHandler.HandleSearch)
		r.Delete("/games/search", libraryHandler.HandleClearSearch)

		r.Post("/library", libraryHandler.HandleAdd)
		r.Get("/library/stats", libraryHandler.HandleStats)
		r.Patch("/library/{id}", libraryHandler.HandleUpdate)
		r.Delete("/library/{id}", libraryHandler.HandleRemove)

		r.Patch("/profile", profileHandler.HandleUpdate)
		r.Put("/profile/steam", profileHandler.HandleLinkSteam)
		r.Delete("/profile/steam", profileHandler.HandleUnlinkSteam)
		r.Post("/profile/steam/sync", profileHandler.HandleSyncSteam)
	})
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Close releases the auth subscription, stops the limiter cleanup and closes
// the backend. It must be called once.
func (s *Server) Close() error {
	close(s.stop)
	s.session.Close()
	return s.backend.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the server.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing backend", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.config.Addr()),
			slog.Bool("trust_proxy", s.config.TrustProxy),
			slog.String("environment", s.config.Environment),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
