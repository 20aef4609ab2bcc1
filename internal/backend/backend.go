// Package backend builds the storage and messaging implementations selected
// by configuration.
package backend

import (
	"context"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/config"
	"budget/internal/events"
	"budget/internal/events/kafka"
	"budget/internal/log"
	"budget/internal/storage"
	"budget/internal/storage/memory"
)

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = config.BackendMemory
	SQLiteBackend   BackendType = config.BackendSQLite
	PostgresBackend BackendType = config.BackendPostgres
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// OpenStore returns the store named by cfg.DataBackend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.Store, error) {
	logger = logger.WithComponent(log.ComponentBackend)

	switch bt := BackendType(cfg.DataBackend); bt {
	case SQLiteBackend:
		repo, err := storage.Open(ctx, storage.Options{
			Dialect:     storage.SQLite,
			DSN:         cfg.SQLiteDBPath,
			AutoMigrate: cfg.AutoMigrate,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, nil

	case PostgresBackend:
		repo, err := storage.Open(ctx, storage.Options{
			Dialect:     storage.Postgres,
			DSN:         cfg.DatabaseURL,
			AutoMigrate: cfg.AutoMigrate,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		logger.InfoContext(ctx, "Initialized Postgres backend")
		return repo, nil

	case MemoryBackend:
		seed := memory.DefaultSeed()
		if cfg.SeedFile != "" {
			var err error
			if seed, err = memory.LoadSeed(cfg.SeedFile); err != nil {
				return nil, err
			}
		}
		store, err := memory.NewSeeded(seed)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		logger.InfoContext(ctx, "Initialized memory backend", "seed_file", cfg.SeedFile, log.FieldCount, len(seed.Entries))
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", bt)
	}
}

// OpenPublisher returns the event publisher named by cfg.EventsBackend. An
// unreachable AMQP broker degrades to Nop so the budget keeps working.
func OpenPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) events.Publisher {
	logger = logger.WithComponent(log.ComponentEvents)

	switch cfg.EventsBackend {
	case config.EventsAMQP:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			return events.Nop{}
		}
		logger.InfoContext(ctx, "Initialized AMQP publisher", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return client

	case config.EventsKafka:
		logger.InfoContext(ctx, "Initialized Kafka publisher", "topic", cfg.KafkaTopic)
		return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}
	return events.Nop{}
}

// OpenConsumer returns the event consumer for the worker. Unlike the
// publisher it fails when the broker is unavailable.
func OpenConsumer(ctx context.Context, cfg *config.Config, logger *log.Logger) (events.Consumer, error) {
	switch cfg.EventsBackend {
	case config.EventsAMQP:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP consumer: %w", err)
		}
		return client, nil
	case config.EventsKafka:
		return kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger), nil
	}
	return nil, fmt.Errorf("events backend %q has no consumer", cfg.EventsBackend)
}
