package ports

import (
	"context"

	"github.com/emberline/faregate/internal/core/domain"
)

// EconomyService moves currency in and out of rider accounts.
type EconomyService interface {
	// Has reports whether the rider can cover the amount.
	Has(ctx context.Context, riderID string, amount float64) (bool, error)
	// Withdraw debits the rider and reports whether the debit happened.
	// A false return with nil error means insufficient funds.
	Withdraw(ctx context.Context, riderID string, amount float64) (bool, error)
	Deposit(ctx context.Context, riderID string, amount float64) error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, tx *domain.Transaction) error
	PublishJourneyEvent(ctx context.Context, event *domain.JourneyEvent) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeTransactions(ctx context.Context, handler func(ctx context.Context, tx *domain.Transaction) error) error
	SubscribeJourneyEvents(ctx context.Context, handler func(ctx context.Context, event *domain.JourneyEvent) error) error
}

// CacheService provides read-through caching and journey snapshots.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Notifier delivers short messages to riders (gate displays, app push).
type Notifier interface {
	Notify(ctx context.Context, riderID, message string) error
}
