package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/ports"
)

// EventPublisher announces committed record changes.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, rec core.ExpenseRecord) error
	PublishExpenseDeleted(ctx context.Context, rec core.ExpenseRecord) error
}

// ExpenseService is the record store seen by the HTTP layer: it delegates
// to the underlying store and publishes an event after each committed
// change. Publishing never fails a request.
type ExpenseService struct {
	store     ports.RecordStore
	publisher EventPublisher
	logger    *applog.Logger
	events    *applog.StructuredLogger
}

var (
	_ ports.RecordStore = (*ExpenseService)(nil)
	_ ports.Pinger      = (*ExpenseService)(nil)
)

// NewExpenseService wraps store. publisher may be nil.
func NewExpenseService(store ports.RecordStore, publisher EventPublisher, logger *applog.Logger) *ExpenseService {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentExpense)
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
	}
}

func (s *ExpenseService) List(ctx context.Context) ([]core.ExpenseRecord, error) {
	return s.store.List(ctx)
}

func (s *ExpenseService) Create(ctx context.Context, e core.NewExpense) (core.ExpenseRecord, error) {
	rec, err := s.store.Create(ctx, e)
	if err != nil {
		var ve *core.ValidationError
		if !errors.As(err, &ve) {
			s.events.LogError(ctx, "Failed to create expense", err, applog.OpCreate,
				applog.NewFields().WithErrorType(applog.ErrorTypeDatabase))
		}
		return core.ExpenseRecord{}, err
	}
	s.events.LogRecordCreated(ctx, applog.NewFields().WithRecord(rec))

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseCreated(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish expense event",
				applog.FieldExpenseID, rec.ID, applog.FieldOperation, applog.OpPublish, applog.FieldError, err)
		}
	}
	return rec, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) (core.ExpenseRecord, error) {
	rec, err := s.store.Delete(ctx, id)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			s.events.LogError(ctx, "Failed to delete expense", err, applog.OpDelete,
				applog.NewFields().WithErrorType(applog.ErrorTypeDatabase))
		}
		return core.ExpenseRecord{}, err
	}
	s.events.LogRecordDeleted(ctx, applog.NewFields().WithRecord(rec))

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseDeleted(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish expense event",
				applog.FieldExpenseID, rec.ID, applog.FieldOperation, applog.OpPublish, applog.FieldError, err)
		}
	}
	return rec, nil
}

// Ping reports whether the underlying store is usable.
func (s *ExpenseService) Ping(ctx context.Context) error {
	if p, ok := s.store.(ports.Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.store.List(ctx)
	return err
}

// Close closes the store and the publisher when they hold resources.
func (s *ExpenseService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
