package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

const cacheCleanupInterval = time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend migrates and opens the store, then assembles the services
// on top of it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	storeCfg := storage.Config{Dialect: config.Type.String(), DSN: config.DSN}
	if !config.SkipMigrations {
		if err := storage.RunMigrations(storeCfg); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	store, err := storage.Open(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", config.Type, err)
	}

	b := &Backend{
		Store:      store,
		Caches:     cache.NewManager(f.logger),
		InstanceID: uuid.NewString(),
	}

	engine := analytics.NewEngine(store.DB(), store.Dialect(), analytics.WithLogger(f.logger))

	var viewCache cache.Cache[any]
	if config.CacheSize > 0 {
		lru := cache.NewLRUCache[any](config.CacheSize, config.CacheTTL)
		b.Caches.Register(lru)
		b.Caches.StartCleanup(cacheCleanupInterval)
		viewCache = lru
	}
	b.Analytics = services.NewAnalyticsService(engine, viewCache, f.logger)

	// Change events are optional; a broker outage must not keep the API down.
	var publisher services.ChangePublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			b.AMQP = client
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange)
		}
	}

	b.Transactions = services.NewTransactionService(store, b.Analytics, publisher, b.InstanceID, f.logger)

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type.String(),
		"cache_enabled", viewCache != nil,
		"amqp_enabled", b.AMQP != nil,
		"instance_id", b.InstanceID)

	return &BackendResult{
		Backend: b,
		Cleanup: b.Close,
	}, nil
}

// Close releases the broker connection, the cache janitor and the pool.
func (b *Backend) Close() error {
	var errs []error
	if b.AMQP != nil {
		if err := b.AMQP.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp: %w", err))
		}
	}
	if b.Caches != nil {
		b.Caches.Stop()
	}
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
