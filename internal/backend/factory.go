package backend

import (
	"context"
	"fmt"

	"expenses/internal/amqp"
	applog "expenses/internal/log"
	"expenses/internal/ports"
	"expenses/internal/services"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
)

// PublisherDialer opens the event publisher. Tests replace it.
type PublisherDialer func(url, exchange, queue string, logger *applog.Logger) (services.EventPublisher, error)

func dialAMQP(url, exchange, queue string, logger *applog.Logger) (services.EventPublisher, error) {
	c, err := amqp.NewClient(url, exchange, queue, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
	dial   PublisherDialer
}

func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend), dial: dialAMQP}
}

// WithPublisherDialer overrides how the event publisher is opened.
func (f *DefaultFactory) WithPublisherDialer(d PublisherDialer) *DefaultFactory {
	f.dial = d
	return f
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store ports.RecordStore
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		p, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		} else {
			publisher = p
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewExpenseService(store, publisher, f.logger)
	return &BackendResult{Service: svc, Cleanup: svc.Close}, nil
}
