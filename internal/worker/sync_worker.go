// Package worker keeps a record mirror in step with the record store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/ports"
)

// IDLister is implemented by mirrors that can report which records they
// hold.
type IDLister interface {
	MirroredIDs(ctx context.Context) ([]int64, error)
}

// SyncWorker applies record events to a mirror. When a source is set it can
// also reconcile the mirror against the full record list, which recovers
// from events lost while the worker was down.
type SyncWorker struct {
	mirror ports.RecordMirror
	source ports.RecordLister
	logger *applog.Logger
}

// NewSyncWorker builds a worker. source may be nil, which disables
// reconciliation.
func NewSyncWorker(mirror ports.RecordMirror, source ports.RecordLister, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{
		mirror: mirror,
		source: source,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent is an amqp.Handler. Returned errors requeue the event.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	switch msg.Type {
	case amqp.EventExpenseCreated:
		if err := w.mirror.AppendRecord(ctx, msg.Record); err != nil {
			return fmt.Errorf("mirror created expense %d: %w", msg.Record.ID, err)
		}
	case amqp.EventExpenseDeleted:
		if err := w.mirror.DeleteRecord(ctx, msg.Record.ID); err != nil {
			return fmt.Errorf("mirror deleted expense %d: %w", msg.Record.ID, err)
		}
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event type", applog.FieldEventType, msg.Type)
		return nil
	}

	w.logger.InfoContext(ctx, "Processed expense event",
		applog.FieldEventType, msg.Type,
		applog.FieldExpenseID, msg.Record.ID)
	return nil
}

// ReconcileResult counts the rows changed by Reconcile.
type ReconcileResult struct {
	Appended int
	Deleted  int
}

var ErrReconcileUnsupported = errors.New("reconcile needs a record source and a mirror that lists ids")

// Reconcile appends records missing from the mirror and deletes mirrored
// rows whose record no longer exists.
func (w *SyncWorker) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	lister, ok := w.mirror.(IDLister)
	if w.source == nil || !ok {
		return res, ErrReconcileUnsupported
	}

	records, err := w.source.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list records: %w", err)
	}
	mirrored, err := lister.MirroredIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("list mirrored ids: %w", err)
	}

	have := make(map[int64]bool, len(mirrored))
	for _, id := range mirrored {
		have[id] = true
	}
	want := make(map[int64]bool, len(records))
	var errs []error

	for _, rec := range records {
		want[rec.ID] = true
		if have[rec.ID] {
			continue
		}
		if err := w.mirror.AppendRecord(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("append %d: %w", rec.ID, err))
			continue
		}
		res.Appended++
	}
	for _, id := range mirrored {
		if want[id] || core.IsPlaceholderID(id) {
			continue
		}
		if err := w.mirror.DeleteRecord(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("delete %d: %w", id, err))
			continue
		}
		res.Deleted++
	}

	w.logger.InfoContext(ctx, "Reconciled mirror",
		"records", len(records),
		"appended", res.Appended,
		"deleted", res.Deleted,
		"errors", len(errs))
	return res, errors.Join(errs...)
}

// RunReconcileLoop reconciles once immediately and then every interval
// until ctx is done. Failures are logged and retried on the next tick.
func (w *SyncWorker) RunReconcileLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.Reconcile(ctx); err != nil {
			if errors.Is(err, ErrReconcileUnsupported) {
				w.logger.WarnContext(ctx, "Periodic reconciliation disabled", applog.FieldError, err)
				<-ctx.Done()
				return ctx.Err()
			}
			if ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Reconciliation failed", applog.FieldError, err)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
