// Package main is the entrypoint for the match post API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/matchpost/matchpost/internal/auth"
	"github.com/matchpost/matchpost/internal/cache"
	"github.com/matchpost/matchpost/internal/config"
	"github.com/matchpost/matchpost/internal/handler"
	"github.com/matchpost/matchpost/internal/metrics"
	"github.com/matchpost/matchpost/internal/middleware"
	"github.com/matchpost/matchpost/internal/repository"
	"github.com/matchpost/matchpost/internal/server"
	"github.com/matchpost/matchpost/internal/service"
	"github.com/matchpost/matchpost/migrations"
)

// errStartup is returned after a startup failure has already been logged
// with secrets redacted.
var errStartup = errors.New("startup failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(a.handler, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// LIFO: Redis closes before the database pool.
	srv.OnShutdown("postgres", func(context.Context) error {
		a.repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return a.cache.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	return srv.Run(ctx)
}

// app is the wired application: the HTTP handler and the connections it
// depends on.
type app struct {
	handler http.Handler
	repo    *repository.Repository
	cache   *cache.Cache
}

// newApp migrates the schema when configured, connects to Postgres and
// Redis, and builds the router.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if cfg.RunMigrations {
		version, err := migrations.Up(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to run migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return nil, errStartup
		}
		logger.Info("database schema up to date", "version", version)
	}

	tokens, err := auth.NewTokenIssuer([]byte(cfg.SessionSecret), cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	hasher := auth.NewHasher(cfg.PasswordMinLength, auth.DefaultArgon2Params())

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return nil, errStartup
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL, cache.Options{
		PoolSize:  cfg.RedisPoolSize,
		OpTimeout: cfg.RedisTimeout,
	})
	if err != nil {
		repo.Close()
		logger.Error("failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return nil, errStartup
	}
	logger.Info("connected to Redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(registry)

	userService := service.NewUserService(repo, hasher, tokens, recorder, logger)
	matchPostService := service.NewMatchPostService(repo, userService, cacheClient, cfg.MatchPostCacheTTL, recorder, logger)

	r := setupRouter(routerDeps{
		cfg:       cfg,
		logger:    logger,
		recorder:  recorder,
		gatherer:  registry,
		health:    handler.NewHealthHandler(repo, cacheClient, logger),
		auth:      handler.NewAuthHandler(userService, logger),
		matchPost: handler.NewMatchPostHandler(matchPostService, logger),
		tokens:    userService,
		limiter:   cacheClient,
	})

	return &app{handler: r, repo: repo, cache: cacheClient}, nil
}

// initLogger initializes the slog logger based on configuration.
// LOG_FORMAT=text selects a colored tint handler for local development.
func initLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)

	var h slog.Handler
	if cfg.LogFormat == "text" {
		h = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	cfg       *config.Config
	logger    *slog.Logger
	recorder  metrics.Recorder
	gatherer  prometheus.Gatherer
	health    *handler.HealthHandler
	auth      *handler.AuthHandler
	matchPost *handler.MatchPostHandler
	tokens    middleware.TokenValidator
	limiter   middleware.RateLimiter
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	if d.cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Metrics(d.recorder))
	r.Use(middleware.Recoverer(d.logger, d.cfg.IsDevelopment()))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: d.cfg.IsDevelopment()}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.cfg.GetCORSAllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))
	r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))

	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(d.gatherer))

	requireSession := middleware.RequireSession(middleware.AuthConfig{
		Logger: d.logger,
		Tokens: d.tokens,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimitIP(middleware.RateLimitConfig{
				Logger:   d.logger,
				Limiter:  d.limiter,
				Recorder: d.recorder,
				Scope:    "auth",
				Enabled:  d.cfg.RateLimitAuthEnabled,
				RPS:      d.cfg.RateLimitAuthRPS,
				Burst:    d.cfg.RateLimitAuthBurst,
			}))
			r.Post("/register", d.auth.Register)
			r.Post("/login", d.auth.Login)
		})

		r.Route("/match-posts", func(r chi.Router) {
			r.Get("/", d.matchPost.List)
			r.Get("/{id}", d.matchPost.Get)
			r.With(requireSession).Post("/", d.matchPost.Create)
			r.With(requireSession).Patch("/{id}", d.matchPost.Update)
			r.With(requireSession).Delete("/{id}", d.matchPost.Delete)
		})

		r.Get("/users/{id}/match-posts", d.matchPost.ListByOwner)
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

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
