package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"cinetrivia/internal/config"
	"cinetrivia/internal/container"
	"cinetrivia/internal/handler"
	"cinetrivia/internal/middleware"
	"cinetrivia/pkg/logger"
)

// Resources holds all resources that need cleanup
type Resources struct {
	container *container.Container
	server    *http.Server
	stopHub   context.CancelFunc
	log       *logger.Logger
	mu        sync.Mutex
	closed    bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	r.log.Info("Starting graceful shutdown...")

	var errs []error

	// Stop accepting new requests first.
	if r.server != nil {
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	// Then drop websocket clients and the Redis bridge.
	if r.stopHub != nil {
		r.stopHub()
	}

	if r.container != nil {
		r.container.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":          cfg.Port,
		"log_level":     cfg.LogLevel,
		"environment":   cfg.Environment,
		"scoring_table": cfg.ScoringTable,
	}).Info("Starting cinetrivia server")

	ctx := context.Background()
	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	// The hub owns all websocket clients; the bridge feeds it from
	// Redis when pub/sub is configured.
	hubCtx, stopHub := context.WithCancel(ctx)
	go c.Hub.Run(hubCtx)
	if c.HasRedis() {
		go c.Hub.Bridge(hubCtx, c.RedisClient)
	}

	router := setupRouter(c)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	resources := &Resources{
		container: c,
		server:    server,
		stopHub:   stopHub,
		log:       log,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container) *chi.Mux {
	cfg := c.Config
	log := c.Logger

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))

	healthHandler := handler.NewHealthHandler(c)
	authHandler := handler.NewAuthHandler(c.Services.Auth, log)
	gameHandler := handler.NewGameHandler(c.Services.Games, c.Services.Leaderboard, log)
	questionHandler := handler.NewQuestionHandler(c.Services.Questions, log)

	r.Get("/health", healthHandler.Check)

	// Websocket subscriptions bypass the request timeout; connections
	// stay open for the life of the session.
	r.Get("/ws/{gameId}", func(w http.ResponseWriter, req *http.Request) {
		c.Hub.ServeWS(w, req, chi.URLParam(req, "gameId"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(60 * time.Second))

		r.Post("/auth/login", authHandler.Login)
		r.Get("/auth/verify", authHandler.Verify)

		// Viewer-facing reads need no session.
		r.Get("/games", gameHandler.ListGames)
		r.Get("/games/{id}", gameHandler.GetGame)
		r.Get("/games/{id}/teams", gameHandler.ListTeams)
		r.Get("/games/{id}/leaderboard", gameHandler.GetLeaderboard)
		r.Get("/games/{id}/scoring", gameHandler.GetScoringRules)
		r.Get("/games/{id}/movies", gameHandler.ListMovies)
		r.Get("/games/{id}/questions", questionHandler.ListQuestions)
		r.Get("/movies/{id}", gameHandler.GetMovie)
		r.Get("/questions/{id}", questionHandler.GetQuestion)

		// Everything that mutates requires the operator session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(c.Services.Auth, log))

			r.Post("/games", gameHandler.CreateGame)
			r.Put("/games/{id}", gameHandler.UpdateGame)
			r.Delete("/games/{id}", gameHandler.DeleteGame)
			r.Post("/games/{id}/start", gameHandler.StartGame)
			r.Post("/games/{id}/restart", gameHandler.RestartGame)
			r.Post("/games/{id}/toggle-show-answer", gameHandler.ToggleShowAnswer)
			r.Post("/games/{id}/teams", gameHandler.CreateTeams)
			r.Put("/games/{id}/teams/{teamNumber}/score", gameHandler.UpdateTeamScore)
			r.Delete("/games/{id}/teams", gameHandler.DeleteTeams)
			r.Post("/games/{id}/movies", gameHandler.CreateMovie)
			r.Delete("/movies/{id}", gameHandler.DeleteMovie)

			r.Post("/questions", questionHandler.CreateQuestion)
			r.Put("/questions/{id}", questionHandler.UpdateQuestion)
			r.Delete("/questions/{id}", questionHandler.DeleteQuestion)
			r.Post("/questions/{id}/open", questionHandler.OpenQuestion)
			r.Post("/questions/{id}/pass", questionHandler.PassQuestion)
			r.Post("/questions/{id}/answer", questionHandler.AnswerQuestion)
		})
	})

	return r
}
