package worker

import (
	"context"
	"errors"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
)

// ChangeConsumer delivers transaction change events until ctx is done.
type ChangeConsumer interface {
	ConsumeTransactionChanged(ctx context.Context, handler func(context.Context, *amqp.TransactionChangedMessage) error) error
}

// Invalidator drops cached analytics for a user.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID string) int
}

// InvalidationWorker keeps the local analytics cache in step with writes
// made by other instances sharing the same database.
type InvalidationWorker struct {
	consumer    ChangeConsumer
	invalidator Invalidator
	instanceID  string
	logger      *log.Logger
}

func NewInvalidationWorker(consumer ChangeConsumer, invalidator Invalidator, instanceID string, logger *log.Logger) *InvalidationWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &InvalidationWorker{
		consumer:    consumer,
		invalidator: invalidator,
		instanceID:  instanceID,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes change events until ctx is cancelled.
func (w *InvalidationWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Invalidation worker started", "instance_id", w.instanceID)
	err := w.consumer.ConsumeTransactionChanged(ctx, w.HandleChange)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		w.logger.InfoContext(ctx, "Invalidation worker stopped")
		return nil
	}
	return err
}

// HandleChange processes a single change event from AMQP.
func (w *InvalidationWorker) HandleChange(ctx context.Context, msg *amqp.TransactionChangedMessage) error {
	// The writing instance already invalidated its own cache.
	if msg.Source != "" && msg.Source == w.instanceID {
		return nil
	}

	n := w.invalidator.InvalidateUser(ctx, msg.UserID)
	w.logger.DebugContext(ctx, "Processed change event",
		log.FieldOperation, log.OpConsume,
		"action", msg.Action,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldUserID, msg.UserID,
		"invalidated", n)
	return nil
}
