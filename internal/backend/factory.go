package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fincycle/internal/amqp"
	"fincycle/internal/cache"
	"fincycle/internal/exchange"
	applog "fincycle/internal/log"
	"fincycle/internal/services"
	"fincycle/internal/storage"
	"fincycle/internal/storage/memory"
)

const cacheSweepInterval = time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend opens the store, builds the cached rate provider and picks
// the sync publisher. A broker that cannot be reached degrades to inline sync.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	cached := exchange.NewCachedProvider(exchange.NewHTTPProvider(config.ExchangeAPIURL, config.ExchangeTimeout), config.ExchangeCacheTTL)
	janitor := cache.NewJanitor(cached.Cache())
	janitor.Start(context.WithoutCancel(ctx), cacheSweepInterval)

	sync := services.NewSynchronizer(store, cached, config.DeletionPolicy, config.SyncConcurrency)

	var publisher services.SyncPublisher = services.NewInlinePublisher(sync)
	var amqpClient *amqp.Client
	switch {
	case config.AMQPURL == "":
	case config.Type == MemoryBackend:
		// A worker process would sync against its own empty store.
		f.logger.WarnContext(ctx, "Ignoring AMQP_URL with the in-memory store, syncing inline",
			"exchange", config.AMQPExchange)
	default:
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, syncing inline", "error", err)
			amqpClient = nil
		} else {
			publisher = amqpClient
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", amqpClient != nil,
		"deletion_policy", string(config.DeletionPolicy))

	return &BackendResult{
		Store:        store,
		Rates:        cached,
		Synchronizer: sync,
		Publisher:    publisher,
		AMQP:         amqpClient,
		Cleanup: func() error {
			janitor.Stop()
			var errs []error
			if amqpClient != nil {
				errs = append(errs, amqpClient.Close())
			}
			errs = append(errs, store.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		store, err := storage.OpenSQLite(ctx, config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened SQLite store", "db_path", config.SQLiteDBPath)
		return store, nil
	case PostgresBackend:
		store, err := storage.OpenPostgres(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened Postgres store")
		return store, nil
	case MemoryBackend:
		f.logger.WarnContext(ctx, "Using in-memory store, data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
