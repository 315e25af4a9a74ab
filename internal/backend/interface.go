package backend

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// Backend bundles everything the HTTP layer and the worker need.
type Backend struct {
	Store        *storage.Store
	Transactions *services.TransactionService
	Analytics    *services.AnalyticsService
	Caches       *cache.Manager

	// AMQP is nil when change events are disabled or the broker was unreachable.
	AMQP *amqp.Client

	// InstanceID tags the events this process publishes.
	InstanceID string
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
