package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"vellum/backend/internal/analytics"
	"vellum/backend/internal/cache"
	"vellum/backend/internal/config"
	"vellum/backend/internal/httpapi"
	"vellum/backend/internal/insight"
	"vellum/backend/internal/service"
	"vellum/backend/internal/store"
	"vellum/backend/internal/store/memory"
	pgstore "vellum/backend/internal/store/postgres"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal("invalid security configuration", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("repository unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}

	insightCache, closeCache := openInsightCache(ctx, cfg, logger)
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	insights := insight.NewService(insightCache, newGenerator(cfg, logger), logger)
	svc := service.New(repo, analytics.NewEngine(), insights, logger)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("analytics backend listening", zap.String("addr", cfg.Address()), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openRepository uses Postgres when DATABASE_URL is set and never falls back
// to memory in that case.
func openRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Repository, func() error, error) {
	if cfg.DatabaseURL == "" {
		repo, err := memory.NewSeeded(logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("repository: in-memory")
		return repo, nil, nil
	}

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = pg.Close()
		return nil, nil, err
	}
	logger.Info("repository: postgres")
	return pg, pg.Close, nil
}

// openInsightCache prefers Redis and falls back to process memory when Redis
// is not configured or not reachable.
func openInsightCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.InsightCache, func() error) {
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisInsightCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.InsightCacheTTL())
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-memory insight cache", zap.Error(err))
			_ = redisCache.Close()
		} else {
			logger.Info("insight cache: redis")
			return redisCache, redisCache.Close
		}
	}
	logger.Info("insight cache: in-memory")
	return cache.NewMemoryInsightCache(cfg.InsightCacheTTL(), nil), nil
}

func newGenerator(cfg config.Config, logger *zap.Logger) insight.Generator {
	if cfg.OpenAIAPIKey == "" {
		logger.Info("insight generator: fallback rules only")
		return nil
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = insight.DefaultModel
	}
	logger.Info("insight generator: openai", zap.String("model", model))
	return insight.NewOpenAIGenerator(cfg.OpenAIAPIKey, model)
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.DatabaseURL != "" || cfg.Development() {
		return nil
	}
	for _, seed := range []struct {
		key      string
		password string
	}{
		{"SEED_ADMIN_PASSWORD", cfg.SeedAdminPassword},
		{"SEED_ANALYST_PASSWORD", cfg.SeedAnalystPassword},
	} {
		if seed.password == "" {
			return fmt.Errorf("%s must be set when running without DATABASE_URL", seed.key)
		}
		if err := validatePasswordStrength(seed.password); err != nil {
			return fmt.Errorf("%s is too weak: %w", seed.key, err)
		}
	}
	return nil
}

// validatePasswordStrength rejects short passwords, single repeated
// characters, and a known-weak list.
func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("at least 8 characters required")
	}
	known := map[string]bool{
		"password": true, "12345678": true, "admin123": true, "analyst123": true,
		"qwertyui": true, "senha123": true, "changeme": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}
	if strings.Count(password, password[:1]) == len(password) {
		return fmt.Errorf("repeated-character password not allowed")
	}
	return nil
}
