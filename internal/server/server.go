// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  sqlite.DB ─┬─ AuthService    ─┬─ UserHandler, AuthHandler
//	  PhotoStore ┼─ ProductService ─┼─ ProductHandler
//	             ├─ ClientService  ─┼─ ClientHandler
//	             └─ OrderService   ─┴─ OrderHandler
//
// This is the "composition root": all dependencies are wired in one place
// (New/setupRoutes) rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/inventory-service/internal/auth"
	"github.com/sakif/inventory-service/internal/config"
	"github.com/sakif/inventory-service/internal/handler"
	"github.com/sakif/inventory-service/internal/metrics"
	"github.com/sakif/inventory-service/internal/middleware"
	sqliteRepo "github.com/sakif/inventory-service/internal/repository/sqlite"
	"github.com/sakif/inventory-service/internal/service"
	"github.com/sakif/inventory-service/internal/storage"
)

// Idle rate-limit buckets are forgotten after this long.
const (
	limiterCleanupInterval = time.Minute
	limiterMaxIdle         = 10 * time.Minute
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it during graceful
// shutdown; callers that never Start (tests) call Close.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	photos  *storage.PhotoStore
	tokens  *auth.TokenService
	limiter *middleware.RateLimiter
}

// New opens the database (applying migrations), prepares the photo
// directory and wires every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		// 0755 = owner can read/write/execute, others can read/execute
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	photos, err := storage.NewPhotoStore(cfg.PhotoDir, cfg.MaxUploadBytes, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening photo store: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		photos:  photos,
		tokens:  tokens,
		limiter: middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
	}
	s.setupRoutes()

	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start does this itself on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                  → DB ping
//	GET    /metrics                  → Prometheus exposition
//	POST   /user/register            → create account
//	POST   /user/login               → Bearer token
//	GET    /user/me                  → profile                 (auth)
//	DELETE /user/delete              → delete account + data   (auth)
//	GET    /auth/github/login        → GitHub redirect   (if configured)
//	GET    /auth/github/callback     → Bearer token      (if configured)
//	*      /client/, /client/{id}    → contacts                (auth)
//	*      /product/, /product/{id}  → catalog                 (auth)
//	GET    /product/photo/{filename} → stored photo            (auth)
//	*      /order/, /order/{id}      → orders                  (auth)
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
//  1. RequestID: assigns a unique id to each request (for tracing)
//  2. RealIP: extracts the client IP from proxy headers
//  3. Recoverer: turns panics into 500s instead of crashing
//  4. Logger, Metrics: observe the final status
//  5. CORS: answers preflight requests before any auth check
//
// The rate limiter runs per route group, after RequireAuth where there is
// one, so authenticated callers are limited per user rather than per IP.
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Origins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// === Operational ===
	r.Get("/healthz", handler.NewHealthHandler(s.db, s.logger).HandleHealth)
	r.Handle("/metrics", metrics.Handler())

	// === Services ===
	accounts := service.NewAuthService(s.db, s.tokens, auth.NewPasswordService(), s.photos, s.logger)
	clients := service.NewClientService(s.db, s.logger)
	products := service.NewProductService(s.db, s.photos, s.logger)
	orders := service.NewOrderService(s.db, s.logger)

	requireAuth := auth.RequireAuth(s.tokens, s.logger)
	limit := s.limiter.Handler

	// === Accounts ===
	users := handler.NewUserHandler(accounts, s.logger)
	r.Route("/user", func(r chi.Router) {
		r.With(limit).Post("/register", users.HandleRegister)
		r.With(limit).Post("/login", users.HandleLogin)
		r.With(requireAuth, limit).Get("/me", users.HandleMe)
		r.With(requireAuth, limit).Delete("/delete", users.HandleDelete)
	})

	if s.config.GitHubEnabled() {
		github := auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
		gh := handler.NewAuthHandler(github, accounts, s.logger)
		r.Route("/auth/github", func(r chi.Router) {
			r.Use(limit)
			r.Get("/login", gh.HandleGitHubLogin)
			r.Get("/callback", gh.HandleGitHubCallback)
		})
	}

	// === Owner-scoped resources ===
	clientHandler := handler.NewClientHandler(clients, s.logger)
	r.Route("/client", func(r chi.Router) {
		r.Use(requireAuth, limit)
		r.Post("/", clientHandler.HandleCreate)
		r.Get("/", clientHandler.HandleList)
		r.Get("/{id}", clientHandler.HandleGet)
		r.Put("/{id}", clientHandler.HandleUpdate)
		r.Delete("/{id}", clientHandler.HandleDelete)
	})

	productHandler := handler.NewProductHandler(products, s.photos.MaxBytes(), s.logger)
	r.Route("/product", func(r chi.Router) {
		r.Use(requireAuth, limit)
		r.Post("/", productHandler.HandleCreate)
		r.Get("/", productHandler.HandleList)
		r.Get("/photo/{filename}", productHandler.HandlePhoto)
		r.Get("/{id}", productHandler.HandleGet)
		r.Put("/{id}", productHandler.HandleUpdate)
		r.Delete("/{id}", productHandler.HandleDelete)
	})

	orderHandler := handler.NewOrderHandler(orders, s.logger)
	r.Route("/order", func(r chi.Router) {
		r.Use(requireAuth, limit)
		r.Post("/", orderHandler.HandleCreate)
		r.Get("/", orderHandler.HandleList)
		r.Get("/{id}", orderHandler.HandleGet)
		r.Put("/{id}", orderHandler.HandleUpdate)
		r.Delete("/{id}", orderHandler.HandleDelete)
	})
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (SHUTDOWN_TIMEOUT)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.limiter.StartCleanup(ctx, limiterCleanupInterval, limiterMaxIdle)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("photos", s.config.PhotoDir),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
