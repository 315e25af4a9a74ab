package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// TransactionStore is the persistence the service writes through.
type TransactionStore interface {
	Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, id int64) (core.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]core.Transaction, error)
	ListByFestival(ctx context.Context, userID, festival string) ([]core.Transaction, error)
	Summary(ctx context.Context, userID string) (core.Summary, error)
	FestivalSummary(ctx context.Context, userID, festival string) (core.Summary, error)
}

// ChangePublisher broadcasts transaction changes to other instances.
type ChangePublisher interface {
	PublishTransactionChanged(ctx context.Context, msg *amqp.TransactionChangedMessage) error
}

// UserInvalidator drops cached analytics for a user.
type UserInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) int
}

// TransactionService orchestrates transaction writes across the store,
// the local analytics cache and the change-event bus.
type TransactionService struct {
	store       TransactionStore
	invalidator UserInvalidator
	publisher   ChangePublisher
	instanceID  string
	now         func() time.Time
	logger      *log.Logger
}

// NewTransactionService wires the service. invalidator and publisher may be nil.
func NewTransactionService(store TransactionStore, invalidator UserInvalidator, publisher ChangePublisher, instanceID string, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		store:       store,
		invalidator: invalidator,
		publisher:   publisher,
		instanceID:  instanceID,
		now:         time.Now,
		logger:      logger.WithComponent(log.ComponentTransaction),
	}
}

// Create validates and stores a transaction. A missing date becomes today.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = core.NewDate(s.now())
	}

	saved, err := s.store.Create(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.changed(ctx, amqp.ActionCreated, saved)
	return saved, nil
}

// Delete removes a transaction by id and returns what was removed.
func (s *TransactionService) Delete(ctx context.Context, id int64) (core.Transaction, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	s.changed(ctx, amqp.ActionDeleted, deleted)
	return deleted, nil
}

func (s *TransactionService) ListByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *TransactionService) ListByFestival(ctx context.Context, userID, festival string) ([]core.Transaction, error) {
	return s.store.ListByFestival(ctx, userID, festival)
}

func (s *TransactionService) Summary(ctx context.Context, userID string) (core.Summary, error) {
	return s.store.Summary(ctx, userID)
}

func (s *TransactionService) FestivalSummary(ctx context.Context, userID, festival string) (core.Summary, error) {
	return s.store.FestivalSummary(ctx, userID, festival)
}

// changed invalidates locally and notifies other instances. Publishing is
// best effort: the write already succeeded.
func (s *TransactionService) changed(ctx context.Context, action string, t core.Transaction) {
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(ctx, t.UserID)
	}

	if s.publisher == nil {
		return
	}
	msg := amqp.NewTransactionChangedMessage(action, t.ID, t.UserID, s.instanceID)
	if err := s.publisher.PublishTransactionChanged(ctx, msg); err != nil {
		fields := log.NewFields().
			WithTransaction(t.ID, t.UserID, t.Amount.Cents, t.Category).
			WithOperation(log.OpPublish).
			WithError(err)
		s.logger.ErrorContext(ctx, "Failed to publish transaction change", fields.ToSlice()...)
	}
}
