// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and routes,
// and decides:
// - Which URL patterns map to which handler functions
// - Which routes need a signed-in user and which merely accept one
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//
//	config.Config, logger, optional image store → passed to Server
//	Server.New() creates: sqlite.DB → services → handlers
//
// This is the "composition root" pattern: all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
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
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/recipe-room/internal/auth"
	"github.com/sakif/recipe-room/internal/config"
	"github.com/sakif/recipe-room/internal/handler"
	"github.com/sakif/recipe-room/internal/middleware"
	sqliteRepo "github.com/sakif/recipe-room/internal/repository/sqlite"
	"github.com/sakif/recipe-room/internal/service"
	"github.com/sakif/recipe-room/internal/storage"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it after the HTTP
// server has drained; tests that never call Start call Close instead.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every route.
//
// images may be nil: upload routes then answer 503 and everything else
// works. GitHub sign-in routes are registered only when cfg.GitHub is
// configured.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg *config.Config, logger *slog.Logger, images storage.ImageStore) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(images); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Close releases the database.
func (s *Server) Close() error { return s.db.Close() }

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers, so the rate limiter keys on it
// 3. Logger, Metrics: see the final status, including a recovered panic's 500
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. CORS: answers preflights before auth runs
//
// AUTH LEVELS:
//
//	RequireAuth  → 401 without a valid token
//	OptionalAuth → anonymous without a token, 401 with a bad one
//	(none)       → identity is ignored
func (s *Server) setupRoutes(images storage.ImageStore) error {
	cfg := s.config

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Services ===
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	var github *auth.GitHubProvider
	if cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	}

	accounts := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), images, s.logger)
	recipes := service.NewRecipeService(s.db, images, s.logger)
	ratings := service.NewRatingService(s.db, s.logger)
	groups := service.NewGroupService(s.db, s.logger)
	bookmarks := service.NewBookmarkService(s.db, s.logger)
	comments := service.NewCommentService(s.db, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(accounts, github, cfg.Auth.CookieSecure, cfg.GitHub.SuccessURL, s.logger)
	recipeHandler := handler.NewRecipeHandler(recipes, ratings, s.logger)
	groupHandler := handler.NewGroupHandler(groups, s.logger)
	bookmarkHandler := handler.NewBookmarkHandler(bookmarks, s.logger)
	commentHandler := handler.NewCommentHandler(comments, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, images, s.logger)

	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)

	// === Operational Routes ===
	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			r.Use(httprate.LimitByIP(cfg.RateLimit.Requests, cfg.RateLimit.Window))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.RateLimit.Enabled {
					r.Use(httprate.LimitByIP(cfg.RateLimit.AuthRequests, cfg.RateLimit.Window))
				}
				r.Post("/register", authHandler.HandleRegister)
				r.Post("/login", authHandler.HandleLogin)
			})
			r.Post("/logout", authHandler.HandleLogout)

			if authHandler.GitHubEnabled() {
				r.Get("/github/login", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
			}

			r.With(requireAuth).Get("/me", authHandler.HandleMe)
			r.With(requireAuth).Post("/upload-profile-image", authHandler.HandleUploadProfileImage)
		})

		// Comments are public.
		r.Get("/recipes/{id}/comments", commentHandler.HandleList)

		// Reads that personalise the response when a user is signed in.
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/recipes", recipeHandler.HandleList)
			r.Get("/recipes/search", recipeHandler.HandleSearch)
			r.Get("/recipes/{id}", recipeHandler.HandleGet)
			r.Get("/recipes/{id}/rating", recipeHandler.HandleRatingSummary)
			r.Get("/groups", groupHandler.HandleList)
			r.Get("/groups/{id}", groupHandler.HandleGet)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/recipes", recipeHandler.HandleCreate)
			r.Put("/recipes/{id}", recipeHandler.HandleUpdate)
			r.Delete("/recipes/{id}", recipeHandler.HandleDelete)
			r.Post("/recipes/{id}/upload-image", recipeHandler.HandleUploadImage)
			r.Post("/recipes/{id}/rate", recipeHandler.HandleRate)
			r.Post("/recipes/{id}/bookmark", bookmarkHandler.HandleBookmarkRecipe)
			r.Delete("/recipes/{id}/bookmark", bookmarkHandler.HandleUnbookmarkRecipe)

			r.Get("/bookmarks", bookmarkHandler.HandleList)
			r.Post("/bookmarks", bookmarkHandler.HandleCreate)
			r.Delete("/bookmarks/{id}", bookmarkHandler.HandleDelete)

			r.Post("/comments", commentHandler.HandleCreate)
			r.Put("/comments/{id}", commentHandler.HandleUpdate)
			r.Delete("/comments/{id}", commentHandler.HandleDelete)

			r.Post("/groups", groupHandler.HandleCreate)
			r.Put("/groups/{id}", groupHandler.HandleUpdate)
			r.Delete("/groups/{id}", groupHandler.HandleDelete)
			r.Post("/groups/{id}/join", groupHandler.HandleJoin)
			r.Delete("/groups/{id}/leave", groupHandler.HandleLeave)
			r.Get("/groups/{id}/members", groupHandler.HandleMembers)
			r.Put("/groups/{id}/members/{userID}/admin", groupHandler.HandleSetAdmin)
			r.Delete("/groups/{id}/members/{userID}", groupHandler.HandleRemoveMember)
			r.Get("/groups/{id}/recipes", groupHandler.HandleRecipes)

			r.Get("/my-groups", groupHandler.HandleListMine)
		})
	})

	s.logger.Debug("routes configured",
		slog.Bool("github", github != nil),
		slog.Bool("image_uploads", images != nil),
		slog.Bool("rate_limit", cfg.RateLimit.Enabled),
	)
	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (Server.ShutdownTimeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.config.Database.Path),
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

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
