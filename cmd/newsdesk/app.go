package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"newsdesk/internal/config"
	"newsdesk/internal/logging"
	"newsdesk/internal/pipeline"
	"newsdesk/internal/prompts"
	"newsdesk/internal/providers"
	"newsdesk/internal/routing"
	"newsdesk/internal/search"
	"newsdesk/internal/storage"
	"newsdesk/internal/usage"
)

// app holds the wired services of one process
type app struct {
	cfg   *config.Config
	db    *storage.DB
	store *storage.Store
	redis *redis.Client

	factory   *providers.ProviderFactory
	router    *routing.Router
	prompts   *prompts.Manager
	searcher  pipeline.Searcher
	processor *pipeline.Processor
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := storage.NewDB(storage.DBConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.EncryptionKey != "" {
		enc, err := storage.NewEncryptionFromBase64(cfg.EncryptionKey)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize encryption: %w", err)
		}
		db = db.WithEncryption(enc)
	} else {
		logging.Warningf("ENCRYPTION_KEY is not set, provider API keys are stored in plain text")
	}

	a := &app{
		cfg:     cfg,
		db:      db,
		store:   storage.NewStore(db),
		factory: providers.NewProviderFactory(providers.WithDefaultTimeout(cfg.Provider.RequestTimeout)),
	}

	var routerOpts []routing.Option
	if cfg.Usage.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		routerOpts = append(routerOpts, routing.WithUsageTracker(usage.NewRedisTracker(a.redis)))
	}

	a.router = routing.NewRouter(a.store, a.factory, routerOpts...)
	a.prompts = prompts.NewManager(a.store)

	a.searcher = newSearcher(cfg.Search)
	a.processor = pipeline.NewProcessor(a.store, a.prompts, a.router, pipeline.WithSearcher(a.searcher))

	return a, nil
}

// newSearchClient resolves the configured provider through the search
// factory on every call
func newSearchClient(cfg config.SearchConfig) *search.Client {
	factory := search.NewFactory(search.WithDefaultTimeout(cfg.Timeout))
	return search.NewClient(factory, cfg.Provider, cfg.APIKey)
}

// newSearcher returns the search client, cached when a cache size is set
func newSearcher(cfg config.SearchConfig) pipeline.Searcher {
	client := newSearchClient(cfg)
	if !client.Configured() {
		logging.Warningf("BRAVE_SEARCH_API_KEY is not set, searches fail until it is configured")
	}

	if cfg.CacheSize > 0 {
		return search.NewCachedProvider(client, cfg.CacheSize, cfg.CacheTTL)
	}
	return client
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logging.Warningf("failed to close Redis client: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		logging.Warningf("failed to close database: %v", err)
	}
}
