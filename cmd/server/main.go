package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hexsera/hexpoint/internal/config"
	"github.com/hexsera/hexpoint/internal/database"
	"github.com/hexsera/hexpoint/internal/handlers"
	"github.com/hexsera/hexpoint/internal/logging"
	"github.com/hexsera/hexpoint/internal/middleware"
	"github.com/hexsera/hexpoint/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{"env": cfg.Server.Environment})
	}

	logger.Info("Starting friendship server...")

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"attempts": cfg.Database.ConnectRetries,
	})
	db, err := database.WaitForPostgres(context.Background(), cfg.Database.DSN(), cfg.Database.ConnectRetries, cfg.Database.ConnectRetryDelay, logger)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	logger.Info("Running database migrations...", map[string]interface{}{"path": cfg.Database.MigrationsPath})
	migrator, err := database.NewMigrator(cfg.Database.DSN(), cfg.Database.MigrationsPath)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	if version, dirty, err := migrator.Version(); err == nil {
		logger.Info("Migrations completed", map[string]interface{}{"version": version, "dirty": dirty})
	}
	_ = migrator.Close()

	var redisDB *database.RedisDB
	var redisHealth handlers.Pinger
	if cfg.Redis.Enabled {
		logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
		redisDB, err = database.NewRedisDB(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer redisDB.Close()
		redisHealth = redisDB
		logger.Info("Connected to Redis")
	} else {
		logger.Info("Redis disabled; friend request rate limiting is off")
	}

	friendshipService := services.NewFriendshipService(services.NewPoolAdapter(db.Pool))

	friendHandler := handlers.NewFriendHandler(friendshipService)
	healthHandler := handlers.NewHealthHandler(db, redisHealth)
	limiter := resolveFriendRequestLimiter(cfg, redisDB, logger)

	handler := newRouter(friendHandler, healthHandler, limiter)
	handler = middleware.NewRequestLogger(logger).Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

func newRouter(friendHandler *handlers.FriendHandler, healthHandler *handlers.HealthHandler, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.HandleFunc("GET /api/{$}", healthHandler.APIRoot)

	create := limiter.Middleware(http.HandlerFunc(friendHandler.Create))
	for _, prefix := range []string{"/api/friend-requests", "/friend-requests"} {
		mux.Handle("POST "+prefix, create)
		mux.HandleFunc("GET "+prefix, friendHandler.List)
		mux.HandleFunc("POST "+prefix+"/accept", friendHandler.Accept)
		mux.HandleFunc("POST "+prefix+"/reject", friendHandler.Reject)
	}

	return mux
}

// resolveFriendRequestLimiter returns a pass-through limiter when Redis is
// disabled or the configured limit is not positive.
func resolveFriendRequestLimiter(cfg *config.Config, redisDB *database.RedisDB, logger *logging.Logger) *middleware.RateLimiter {
	client := redisDB.RateLimitClient()
	limit := cfg.RateLimit.FriendRequests
	switch {
	case client == nil:
		logger.Info("Friend request rate limit disabled", map[string]interface{}{"reason": "redis disabled"})
	case limit <= 0:
		logger.Warn("Friend request rate limit disabled", map[string]interface{}{"limit": limit})
	default:
		logger.Info("Friend request rate limit enabled", map[string]interface{}{
			"limit":  limit,
			"window": cfg.RateLimit.Window.String(),
		})
	}
	return middleware.NewFriendRequestLimiter(client, limit, cfg.RateLimit.Window)
}
