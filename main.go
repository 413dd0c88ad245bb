package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/PRASANNAPATIL12/weddingcard/internal/cache"
	"github.com/PRASANNAPATIL12/weddingcard/internal/config"
	"github.com/PRASANNAPATIL12/weddingcard/internal/fetch"
	"github.com/PRASANNAPATIL12/weddingcard/internal/handlers"
	"github.com/PRASANNAPATIL12/weddingcard/internal/metrics"
	"github.com/PRASANNAPATIL12/weddingcard/internal/qrrequest"
	"github.com/PRASANNAPATIL12/weddingcard/internal/qrserver"
	"github.com/PRASANNAPATIL12/weddingcard/internal/wedding"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	cfg := config.Load()
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("weddingcard: fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	imgCache, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer imgCache.Close()

	registry, err := wedding.LoadFile(cfg.WeddingsFile)
	if err != nil {
		return err
	}
	logger.Info("weddings loaded", "file", cfg.WeddingsFile, "count", registry.Len())

	endpoints := cfg.Endpoints()
	if !cfg.QRServerEnabled && strings.HasPrefix(endpoints.Dots, cfg.PublicOrigin+qrserver.StyledPath) {
		logger.Warn("dots endpoint points at this service but QRSERVER_ENABLED is off", "endpoint", endpoints.Dots)
	}

	h := handlers.New(handlers.Options{
		Builder: qrrequest.NewBuilder(endpoints),
		Fetcher: fetch.New(fetch.Options{
			Client:   fetch.NewHTTPClient(cfg.FetchTimeout, cfg.FetchConnectTimeout),
			Cache:    imgCache,
			Metrics:  m,
			Logger:   logger,
			MaxBytes: cfg.FetchMaxBytes,
		}),
		Registry:     registry,
		Metrics:      m,
		Logger:       logger,
		Origin:       cfg.PublicOrigin,
		DownloadWait: cfg.FetchTimeout + cfg.FetchConnectTimeout,
	})
	defer h.Close()

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestID())
	r.Use(handlers.AccessLog(logger, m))

	h.Register(r)
	if cfg.QRServerEnabled {
		qrserver.New(logger).Register(r)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("weddingcard listening", "addr", srv.Addr, "origin", cfg.PublicOrigin,
			"primary", endpoints.Primary, "dots", endpoints.Dots, "cache", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case "redis":
		c, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "none", "off":
		return cache.Nop{}, nil
	case "memory", "":
		return cache.NewMemory(cfg.CacheTTL, cfg.CacheMaxEntries), nil
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
}
