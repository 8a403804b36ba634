package repository

import (
	"context"

	"subscription-engine/internal/domain/model"
)

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	UserID string
	Status model.SubscriptionStatus
	Offset int
	Limit  int
}

// SubscriptionRepository is the port for subscription persistence.
//
// Update performs an optimistic check-and-set: the write succeeds only when
// the stored version equals expectedVersion, and bumps the version by one.
// A mismatch surfaces as domain.ErrConflict so the caller may retry with
// fresh state; partial updates are never persisted.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	Update(ctx context.Context, sub *model.Subscription, expectedVersion int64) error
	FindByID(ctx context.Context, id string) (*model.Subscription, error)
	List(ctx context.Context, filter ListFilter) ([]*model.Subscription, error)

	// CountByStatus feeds the stats endpoint and the subscriptions gauge.
	CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}
