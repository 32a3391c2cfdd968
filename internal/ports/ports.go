// Package ports declares the interfaces between the expense domain and
// its adapters.
package ports

import (
	"context"
	"errors"

	"expenses/internal/core"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("expense was not found")

// Ports for the record store.
type (
	RecordLister interface {
		// List returns every record in insertion order.
		List(ctx context.Context) ([]core.ExpenseRecord, error)
	}

	RecordCreator interface {
		// Create validates e, assigns a new id and persists it. Invalid
		// input yields a *core.ValidationError and nothing is written.
		Create(ctx context.Context, e core.NewExpense) (core.ExpenseRecord, error)
	}

	RecordDeleter interface {
		// Delete removes the record and returns it, or ErrNotFound.
		Delete(ctx context.Context, id int64) (core.ExpenseRecord, error)
	}

	RecordStore interface {
		RecordLister
		RecordCreator
		RecordDeleter
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Ports for outbound record mirrors.
type RecordMirror interface {
	// AppendRecord adds rec to the mirror. Appending a record that is
	// already present is a no-op.
	AppendRecord(ctx context.Context, rec core.ExpenseRecord) error
	// DeleteRecord removes the record with id. Missing ids are a no-op.
	DeleteRecord(ctx context.Context, id int64) error
}
