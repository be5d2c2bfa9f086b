package main

import (
	"context"
	"fmt"
	"io"

	"github.com/liliang-cn/semrouter/internal/config"
	"github.com/liliang-cn/semrouter/internal/logging"
	"github.com/liliang-cn/semrouter/pkg/encoder"
	semanticrouter "github.com/liliang-cn/semrouter/pkg/semantic-router"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// buildEncoder creates the configured encoder, wrapped in a cache when
// caching is enabled. The closer releases the cache database.
func buildEncoder(ctx context.Context, cfg *config.Config, logger logging.Logger) (semanticrouter.Encoder, io.Closer, error) {
	var (
		base      semanticrouter.Encoder
		namespace string
	)

	switch cfg.Encoder.Type {
	case config.EncoderLocal:
		base = semanticrouter.NewHashingEncoder(cfg.Encoder.Dimension)
		namespace = fmt.Sprintf("local:%d", cfg.Encoder.Dimension)
	case config.EncoderOllama:
		base = encoder.NewOllamaEncoder(encoder.OllamaConfig{
			Host:        cfg.Encoder.Host,
			Model:       cfg.Encoder.Model,
			Timeout:     cfg.Encoder.Timeout,
			Concurrency: cfg.Encoder.Concurrency,
			Logger:      logger,
		})
		namespace = "ollama:" + cfg.Encoder.Model
	default:
		return nil, nil, fmt.Errorf("unknown encoder type %q", cfg.Encoder.Type)
	}

	if !cfg.Cache.Enabled {
		return base, nopCloser{}, nil
	}
	if cfg.Cache.Path == "" {
		return semanticrouter.NewCachedEncoder(base), nopCloser{}, nil
	}

	cache, err := encoder.NewSQLiteCache(base, encoder.SQLiteCacheConfig{
		Path:      cfg.Cache.Path,
		Namespace: namespace,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := cache.Init(ctx); err != nil {
		return nil, nil, err
	}
	return cache, cache, nil
}

// buildRouter loads the catalog and builds the routing index.
func buildRouter(ctx context.Context, cfg *config.Config, logger logging.Logger) (*semanticrouter.Router, io.Closer, error) {
	routes, err := semanticrouter.LoadCatalog(cfg.Router.Catalog)
	if err != nil {
		return nil, nil, err
	}

	enc, closer, err := buildEncoder(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	router, err := semanticrouter.New(ctx, enc, routes,
		semanticrouter.WithTopK(cfg.Router.TopK),
		semanticrouter.WithBatchEncoding(cfg.Router.BatchEncoding),
	)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}

	stats := router.Stats()
	logger.Debug("routing index built",
		"routes", stats.RouteCount,
		"examples", stats.ExampleCount,
		"empty_routes", stats.EmptyRoutes,
		"dimension", stats.Dimension)
	logger.Info("router ready",
		"catalog", cfg.Router.Catalog,
		"routes", stats.RouteCount,
		"encoder", cfg.Encoder.Type)
	return router, closer, nil
}
