// Package main is the entrypoint for the keyserve API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/keyserve/keyserve/internal/auth"
	"github.com/keyserve/keyserve/internal/config"
	"github.com/keyserve/keyserve/internal/handler"
	"github.com/keyserve/keyserve/internal/metrics"
	"github.com/keyserve/keyserve/internal/middleware"
	"github.com/keyserve/keyserve/internal/secrets"
	"github.com/keyserve/keyserve/internal/server"
	"github.com/keyserve/keyserve/internal/store"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize the credential store backend
	credStore, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error(
			"failed to initialize credential store",
			slog.String("backend", cfg.StoreBackend),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("credential store ready", "backend", cfg.StoreBackend)

	// Initialize the API secret source
	secretSource, redisSource, err := newSecretSource(ctx, cfg)
	if err != nil {
		logger.Error(
			"failed to initialize secret source",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	if redisSource != nil {
		logger.Info("secret source ready", "source", "redis")
	} else {
		logger.Info("secret source ready", "source", "static")
	}
	secretCache := secrets.NewCache(secretSource, cfg.APIKeyCacheTTL, logger)

	// Initialize the bearer token verifier
	verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
	if err != nil {
		logger.Error("failed to initialize OIDC verifier",
			slog.String("issuer", cfg.OIDCIssuerURL),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("OIDC provider discovered", "issuer", cfg.OIDCIssuerURL)

	// Initialize handlers
	metricsRecorder := metrics.NewNoop()
	h := handler.New()
	healthHandler := newHealthHandler(credStore, redisSource)
	userHandler := handler.NewUserHandler(credStore, logger, metricsRecorder)
	lookupHandler := handler.NewLookupHandler(credStore, logger, metricsRecorder)

	// Setup router
	r := setupRouter(h, healthHandler, userHandler, lookupHandler, verifier, secretCache, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	srv.OnShutdown("credential store", func(ctx context.Context) error {
		credStore.Close()
		return nil
	})
	if redisSource != nil {
		srv.OnShutdown("secret source", func(ctx context.Context) error {
			return redisSource.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newStore builds the configured credential store backend.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	default:
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	}
}

// newSecretSource builds the API secret source: Redis-backed when
// REDIS_URL is set, otherwise the static API_KEYS list.
func newSecretSource(ctx context.Context, cfg *config.Config) (secrets.Source, *secrets.RedisSource, error) {
	if cfg.RedisURL == "" {
		return secrets.ParseStatic(cfg.APIKeys), nil, nil
	}

	src, err := secrets.NewRedisSource(ctx, cfg.RedisURL, cfg.RedisKeysKey)
	if err != nil {
		return nil, nil, err
	}
	return src, src, nil
}

// newHealthHandler wires readiness checks for the active backends.
func newHealthHandler(credStore store.Store, redisSource *secrets.RedisSource) *handler.HealthHandler {
	if redisSource == nil {
		return handler.NewHealthHandler(credStore, nil)
	}
	return handler.NewHealthHandler(credStore, redisSource)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	userHandler *handler.UserHandler,
	lookupHandler *handler.LookupHandler,
	verifier auth.TokenVerifier,
	secretCache *secrets.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// CORS applies to all routes; origins come from config.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	// API v1 routes; the two auth paths never combine for one request.
	r.Route("/api/v1", func(r chi.Router) {
		// Self-service (bearer path)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Bearer(middleware.BearerConfig{
				Logger:   logger,
				Verifier: verifier,
			}))
			r.Get("/users/me", userHandler.Me)
			r.Put("/users/me/keys", userHandler.PutKey)
			r.Delete("/users/me/keys", userHandler.DeleteKey)
		})

		// Machine lookup (shared-secret path)
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKey(middleware.APIKeyConfig{
				Logger:  logger,
				Secrets: secretCache,
			}))
			r.Get("/users/{email}/keys", lookupHandler.KeysByEmail)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
