package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "thiraistream/scraperservice/internal/api/http"
	"thiraistream/scraperservice/internal/app"
	"thiraistream/scraperservice/internal/catalog"
	"thiraistream/scraperservice/internal/fetch"
	"thiraistream/scraperservice/internal/lang"
	"thiraistream/scraperservice/internal/metrics"
	"thiraistream/scraperservice/internal/provider/einthusan"
	"thiraistream/scraperservice/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "movie-scraper")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "movie-scraper"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.String("siteOrigin", cfg.SiteOrigin),
		slog.String("cdnOrigin", cfg.CDNOrigin),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("cacheDisabled", cfg.CacheDisabled),
		slog.Duration("pageCacheTTL", cfg.PageCacheTTL),
		slog.Duration("listingCacheTTL", cfg.ListingCacheTTL),
	)

	fetcher := fetch.New(fetch.Config{
		Client: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		TTL:            cfg.PageCacheTTL,
		MaxEntries:     cfg.PageCacheMaxEntries,
		Backend:        buildPageCacheBackend(cfg, logger),
	})

	provider := einthusan.NewProvider(einthusan.Config{
		Origin:    cfg.SiteOrigin,
		CDNOrigin: cfg.CDNOrigin,
		Fetcher:   fetcher,
	})

	resolver := lang.NewResolver(
		lang.WithCacheTTL(cfg.SpellCacheTTL),
		lang.WithCacheMaxEntries(cfg.SpellCacheMaxEntries),
	)

	catalogService := catalog.NewService(provider, resolver,
		catalog.WithLogger(logger),
		catalog.WithListingCacheTTL(cfg.ListingCacheTTL),
		catalog.WithListingCacheMaxEntries(cfg.ListingCacheMaxEntries),
		catalog.WithWarmInterval(cfg.WarmInterval),
		catalog.WithWarmTopListings(cfg.WarmTopListings),
		catalog.WithCacheDisabled(cfg.CacheDisabled),
	)

	handler := apihttp.NewServer(catalogService, apihttp.WithLogger(logger)).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A browse can trigger sequential detail-page fallback fetches;
		// leave write timeouts to the per-fetch timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	catalogService.StartBackground(rootCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("movie scraper service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("movie scraper service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildPageCacheBackend(cfg app.Config, logger *slog.Logger) fetch.Backend {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" || cfg.CacheDisabled {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory page cache only", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, using in-memory page cache only", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return fetch.NewRedisPageCache(client)
}
