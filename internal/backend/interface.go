package backend

import (
	"context"

	"expenses/internal/services"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult holds the record store served by the API and the function
// that releases it.
type BackendResult struct {
	Service *services.ExpenseService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
