package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/agentmart/internal/cache"
	"github.com/kailas-cloud/agentmart/internal/clock"
	"github.com/kailas-cloud/agentmart/internal/config"
	"github.com/kailas-cloud/agentmart/internal/db"
	dbRedis "github.com/kailas-cloud/agentmart/internal/db/redis"
	"github.com/kailas-cloud/agentmart/internal/db/sqlstore"
	"github.com/kailas-cloud/agentmart/internal/domain/search/facet"
	logpkg "github.com/kailas-cloud/agentmart/internal/logger"
	"github.com/kailas-cloud/agentmart/internal/metrics"
	chiTransport "github.com/kailas-cloud/agentmart/internal/transport/chi"
	healthuc "github.com/kailas-cloud/agentmart/internal/usecase/health"
	searchuc "github.com/kailas-cloud/agentmart/internal/usecase/search"
	"github.com/kailas-cloud/agentmart/internal/version"
)

// store is the backing store as main sees it.
type store interface {
	db.ListingStore
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting agentmart API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()
	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer st.Close()

	if err := st.WaitForReady(ctx, cfg.Database.ReadinessTimeout); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	if rs, ok := st.(*dbRedis.Store); ok {
		if err := rs.EnsureIndex(ctx); err != nil {
			logger.Fatal("Failed to ensure search index", zap.Error(err))
		}
	}

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterSearchMetrics()

	cacheCtx, stopCaches := context.WithCancel(ctx)
	defer stopCaches()

	searchSvc, err := newSearchService(cacheCtx, st, cfg.Search)
	if err != nil {
		logger.Fatal("Failed to create search service", zap.Error(err))
	}
	healthSvc := healthuc.New(st, 0)

	server := chiTransport.NewServer(searchSvc, healthSvc, logger)
	router, err := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys: cfg.Auth.APIKeys,
		RateLimit: chiTransport.RateLimit{
			RPS:     cfg.RateLimit.RPS,
			Burst:   cfg.RateLimit.Burst,
			Clients: cfg.RateLimit.Clients,
		},
	})
	if err != nil {
		logger.Fatal("Failed to create router", zap.Error(err))
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	stopCaches()

	logger.Info("Server stopped gracefully")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store, error) {
	switch cfg.Driver {
	case config.DriverPostgres, config.DriverSQLite:
		s, err := sqlstore.Open(ctx, sqlstore.Config{
			Driver:       cfg.Driver,
			DSN:          cfg.DSN,
			MaxOpenConns: cfg.MaxOpenConns,
			Migrate:      cfg.Migrate,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		return s, nil
	case config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
			Index:    cfg.Index,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// newSearchService wires the result caches and in-flight registries in
// front of the degradation chain. The caches are swept until ctx ends.
func newSearchService(ctx context.Context, st store, cfg config.SearchConfig) (*searchuc.Service, error) {
	clk := clock.Real()

	pages, err := cache.New[searchuc.Page](cache.Options{
		Name:          "search",
		Size:          cfg.CacheSize,
		SweepInterval: cfg.SweepInterval,
		Clock:         clk,
	})
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}
	facets, err := cache.New[facet.Set](cache.Options{
		Name:          "facets",
		Size:          1,
		SweepInterval: cfg.SweepInterval,
		Clock:         clk,
	})
	if err != nil {
		return nil, fmt.Errorf("facets cache: %w", err)
	}

	go pages.RunSweeper(ctx)
	go facets.RunSweeper(ctx)

	return searchuc.New(st, searchuc.Deps{
		Pages:        pages,
		PageFlight:   cache.NewInflight[searchuc.Page]("search"),
		Facets:       facets,
		FacetsFlight: cache.NewInflight[facet.Set]("facets"),
	}, searchuc.Config{
		RichTimeout:      cfg.RichTimeout,
		ReducedTimeout:   cfg.ReducedTimeout,
		MinimalTimeout:   cfg.MinimalTimeout,
		MinimalLimit:     cfg.MinimalLimit,
		ResultTTL:        cfg.ResultTTL,
		FacetsTTL:        cfg.FacetsTTL,
		FacetTimeout:     cfg.FacetTimeout,
		FacetSampleLimit: cfg.FacetSampleLimit,
		FacetMaxValues:   cfg.FacetMaxValues,
	}, clk), nil
}
