package main

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

	"github.com/joho/godotenv"

	"github.com/medsql/medsql/internal/api"
	"github.com/medsql/medsql/internal/auth"
	"github.com/medsql/medsql/internal/cache"
	"github.com/medsql/medsql/internal/config"
	"github.com/medsql/medsql/internal/mcpserver"
	"github.com/medsql/medsql/internal/nl2sql"
	"github.com/medsql/medsql/internal/observability"
	"github.com/medsql/medsql/internal/query"
	"github.com/medsql/medsql/internal/records"
	"github.com/medsql/medsql/internal/seed"
	duckdbstore "github.com/medsql/medsql/internal/store/duckdb"
	elasticstore "github.com/medsql/medsql/internal/store/elastic"
	pgstore "github.com/medsql/medsql/internal/store/postgres"
	s3store "github.com/medsql/medsql/internal/storage/s3"
)

const serviceVersion = "1.0.0"

func main() {
	// A local .env is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("medsql-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize data store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = closeStore() }()

	translator := buildTranslator(cfg.Completion, logger)
	translationCache := buildCache(cfg.Cache)
	defer func() { _ = translationCache.Close() }()

	uploader := &records.Uploader{Store: store, Logger: logger}
	pipeline := &query.Service{
		Translator: translator,
		Store:      store,
		Cache:      translationCache,
		Logger:     logger,
	}

	if cfg.Seed.Enabled {
		seedStore(ctx, cfg.Seed, store, uploader, logger)
	}

	deps := api.Dependencies{
		Logger:            logger,
		Pipeline:          pipeline,
		Store:             store,
		Uploader:          uploader,
		CompletionProbe:   translator.Healthy,
		Readiness:         api.CombineReadinessChecks(api.CheckStore(store)),
		DependencyTimeout: time.Second,
	}
	if cfg.MCP.Enabled {
		deps.MCP = mcpserver.New(pipeline, logger, serviceVersion).Handler()
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("backend", cfg.Store.Backend),
			slog.Bool("mcp_enabled", cfg.MCP.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func buildStore(ctx context.Context, cfg config.Config) (records.Store, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := pgstore.Open(ctx, pgstore.DBConfig{
			DSN:             cfg.Store.DSN,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewStore(db), db.Close, nil
	case config.BackendElastic:
		store, err := elasticstore.New(ctx, elasticstore.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
			Index:     cfg.Elastic.Index,
			Alias:     cfg.Elastic.Alias,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	case config.BackendDuckDB:
		store, err := duckdbstore.Open(ctx, cfg.DuckDB.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %q", cfg.Store.Backend)
	}
}

// buildTranslator never fails the boot: when the provider cannot be
// constructed the service runs degraded and reports the reason through the
// health endpoint and every translation attempt.
func buildTranslator(cfg config.CompletionConfig, logger *slog.Logger) nl2sql.Translator {
	var (
		translator nl2sql.Translator
		err        error
	)
	switch cfg.Provider {
	case config.ProviderAzure:
		translator, err = nl2sql.NewAzureTranslator(nl2sql.AzureConfig{
			Endpoint:    cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Deployment:  cfg.Deployment,
			APIVersion:  cfg.APIVersion,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	default:
		translator, err = nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	}
	if err != nil {
		logger.Warn("completion translator unavailable",
			slog.String("provider", cfg.Provider),
			slog.Any("error", err),
		)
		return nl2sql.Unavailable{Reason: err}
	}
	return translator
}

func buildCache(cfg config.CacheConfig) cache.TranslationCache {
	if !cfg.Enabled {
		return cache.Noop{}
	}
	return cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.TTL,
	})
}

// seedStore populates an empty store on boot. Failures are logged and the
// server starts anyway; an unseeded store only means empty query results.
func seedStore(ctx context.Context, cfg config.SeedConfig, store records.Store, uploader *records.Uploader, logger *slog.Logger) {
	source, err := buildSeedSource(cfg)
	if err != nil {
		logger.Error("seed source unavailable", slog.Any("error", err))
		return
	}
	seeder := &seed.Service{
		Store:    store,
		Uploader: uploader,
		Source:   source,
		Logger:   logger,
	}
	if err := seeder.Run(ctx); err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
	}
}

func buildSeedSource(cfg config.SeedConfig) (seed.DatasetSource, error) {
	if cfg.Source != config.SeedSourceObject {
		return seed.BuiltinSource{}, nil
	}
	objects, err := s3store.New(s3store.Config{
		Endpoint:        cfg.Object.Endpoint,
		Region:          cfg.Object.Region,
		Bucket:          cfg.Object.Bucket,
		AccessKeyID:     cfg.Object.AccessKeyID,
		SecretAccessKey: cfg.Object.SecretAccessKey,
		UseSSL:          cfg.Object.UseSSL,
		Prefix:          cfg.Object.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize object store: %w", err)
	}
	return seed.ObjectSource{Objects: objects, Key: cfg.Object.Key}, nil
}
