package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/jobtracker/internal/adapter/httpserver"
	"github.com/pscheid92/jobtracker/internal/adapter/metrics"
	"github.com/pscheid92/jobtracker/internal/adapter/recordstore"
	"github.com/pscheid92/jobtracker/internal/adapter/redis"
	"github.com/pscheid92/jobtracker/internal/platform/config"
	"github.com/pscheid92/jobtracker/internal/platform/logging"
	"github.com/pscheid92/jobtracker/internal/platform/version"
	"github.com/pscheid92/jobtracker/internal/session"
	"github.com/pscheid92/jobtracker/internal/tracker"
	goredis "github.com/redis/go-redis/v9"
)

const evictionInterval = time.Minute

func runGracefulShutdown(srv *httpserver.Server, stopEviction func(), redisClient *goredis.Client) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopEviction()

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				slog.Error("Failed to close Redis client", "error", err)
			}
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupSessionStorage connects to Redis when REDIS_URL is set and falls back
// to in-process storage otherwise.
func setupSessionStorage(cfg *config.Config, clock clockwork.Clock, m *metrics.RedisMetrics) (session.Storage, *goredis.Client, []httpserver.HealthCheck) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set, sessions are kept in memory and lost on restart")
		return session.NewMemoryStorage(clock), nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL, m)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	store := redis.NewSessionStore(client)
	check := httpserver.HealthCheck{Name: "redis", Check: store.Ping}
	return store, client, []httpserver.HealthCheck{check}
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Version)

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	appMetrics := metrics.NewAppMetrics(reg)
	storeMetrics := metrics.NewRecordStoreMetrics(reg)
	redisMetrics := metrics.NewRedisMetrics(reg)

	// RECORD_STORE_TIMEOUT=0 leaves the client without a timeout.
	records := recordstore.NewClient(cfg.RecordStoreURL,
		&http.Client{Timeout: cfg.RecordStoreTimeout},
		recordstore.WithGetAttempts(cfg.RecordStoreGetAttempts),
		recordstore.WithClock(clock),
		recordstore.WithMetrics(storeMetrics),
	)

	storage, redisClient, healthChecks := setupSessionStorage(cfg, clock, redisMetrics)
	healthChecks = append(healthChecks,
		httpserver.HealthCheck{Name: "record_store", Check: records.Ping},
		httpserver.HealthCheck{Name: "record_store_breaker", Check: records.CheckBreaker, ReadyOnly: true},
	)

	sessions := session.NewManager(records, storage,
		session.WithTTL(cfg.SessionMaxAge),
		session.WithPlaintextPasswords(cfg.AllowPlaintextPasswords),
		session.WithMetrics(appMetrics),
	)
	if cfg.AllowPlaintextPasswords {
		slog.Warn("Plaintext password records are accepted at login")
	}

	controllers := tracker.NewRegistry(records, clock, cfg.ControllerIdleTTL, appMetrics)
	sessions.OnLogout(controllers.Remove)
	stopEviction := controllers.StartEvictionTimer(evictionInterval)

	srv, err := httpserver.NewServer(cfg, sessions, controllers, healthChecks,
		httpserver.WithMetrics(reg, httpMetrics, appMetrics),
	)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, stopEviction, redisClient)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
