package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/findaly/findaly/internal/alternatives"
	"github.com/findaly/findaly/internal/api"
	"github.com/findaly/findaly/internal/cache"
	"github.com/findaly/findaly/internal/catalog"
	"github.com/findaly/findaly/internal/config"
	"github.com/findaly/findaly/internal/health"
	"github.com/findaly/findaly/internal/linking"
	"github.com/findaly/findaly/internal/middleware"
	"github.com/findaly/findaly/internal/ranking"
	"github.com/findaly/findaly/internal/tracing"
)

const (
	serviceName    = "findaly-api"
	serviceVersion = "0.1.0"

	shutdownTimeout     = 10 * time.Second
	startupPingTimeout  = 5 * time.Second
	rateLimitSweep      = 5 * time.Minute
	memoryCacheCleanup  = time.Minute
	rateLimitKeyPrefix  = "ratelimit:"
	linkCacheRedisSpace = cache.DefaultRedisPrefix
)

// app holds the assembled HTTP handler and the resources it owns.
type app struct {
	handler http.Handler
	closers []func(context.Context) error
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newApp wires the catalog store, caches, ranker, assembler and middleware
// chain from cfg. Background goroutines stop when ctx is done.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	provider, err := tracing.NewProvider(tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Enabled:        cfg.TracingEnabled,
		Environment:    cfg.Env,
		ExporterType:   cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplingRate:   cfg.TracingSampleRate,
		InsecureMode:   cfg.TracingInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, provider.Shutdown)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics()
	rankMetrics := alternatives.NewMetrics()
	linkMetrics := linking.NewMetrics()
	if err := httpMetrics.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}
	if err := rankMetrics.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register ranker metrics: %w", err)
	}
	if err := linkMetrics.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register link metrics: %w", err)
	}

	healthCfg := api.HealthHandlersConfig{MetricsEnabled: true}

	store, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if db != nil {
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		healthCfg.DBChecker = health.NewDBChecker(db)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return redisClient.Close() })
		healthCfg.RedisChecker = health.NewRedisChecker(redisClient)
	}

	var linkCache cache.Cache
	if redisClient != nil {
		linkCache = cache.NewRedisCache(redisClient, linkCacheRedisSpace)
		logger.Info("link cache: redis")
	} else {
		linkCache = cache.NewMemoryCache(memoryCacheCleanup)
		logger.Info("link cache: in-process")
	}

	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		logger.Warn("using default ranking weights", "error", err)
	}

	ranker := alternatives.NewRanker(store, weights, alternatives.DefaultConfig(), rankMetrics, logger)
	assembler := linking.NewAssembler(store, ranker, linkCache, linking.Config{
		Limits:   linking.DefaultLimits(),
		CacheTTL: cfg.LinkCacheTTL,
	}, linkMetrics, logger)

	var handler http.Handler = api.NewRouter(api.Handlers{
		Tools:   api.NewToolHandlers(ranker),
		Links:   api.NewLinkHandlers(assembler),
		Health:  api.NewHealthHandlers(healthCfg),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Info:    api.ServiceInfo{Service: serviceName, Version: serviceVersion},
	})

	if cfg.RateLimitPerMinute > 0 {
		var limitStore middleware.LimitStore
		if redisClient != nil {
			limitStore = middleware.NewRedisLimitStore(redisClient).WithMetrics(httpMetrics)
		} else {
			memStore := middleware.NewMemoryLimitStore()
			go memStore.RunSweeper(ctx, rateLimitSweep)
			limitStore = memStore
		}
		handler = middleware.RateLimiter(middleware.RateLimitOptions{
			Store:    limitStore,
			Limit:    middleware.PerMinute(cfg.RateLimitPerMinute),
			Key:      middleware.ClientIP(cfg.TrustProxyHeaders),
			Prefix:   rateLimitKeyPrefix,
			Metrics:  httpMetrics,
			Rejected: api.RateLimited,
		})(handler)
	} else {
		logger.Warn("rate limiting disabled")
	}

	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	a.handler = middleware.Tracing(serviceName)(handler)

	return a, nil
}

// openStore selects the catalog backend: Postgres when a database URL is
// set, else the YAML seed, else an empty in-memory catalog.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (catalog.Store, *sql.DB, error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("catalog store: postgres")
		return catalog.NewPostgresStore(db, logger), db, nil

	case cfg.CatalogSeedPath != "":
		store, err := catalog.LoadSeed(cfg.CatalogSeedPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("catalog store: seed", "path", cfg.CatalogSeedPath)
		return store, nil, nil

	default:
		logger.Warn("no database_url or catalog_seed_path configured, serving an empty catalog")
		return catalog.NewInMemoryStore(), nil, nil
	}
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// run serves the API on cfg.Port until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.close(closeCtx); err != nil {
			logger.Error("failed to release resources", "error", err)
		}
	}()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return serve(ctx, newServer(a.handler), ln, logger)
}

func newServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// serve runs server on ln and shuts it down gracefully once ctx is done,
// letting in-flight requests finish within shutdownTimeout.
func serve(ctx context.Context, server *http.Server, ln net.Listener, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
