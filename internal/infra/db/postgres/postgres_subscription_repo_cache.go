package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"subscription-engine/internal/domain/model"
	"subscription-engine/internal/domain/ports/repository"
	"subscription-engine/internal/infra/metrics"
	red "subscription-engine/internal/infra/redis"
)

var _ repository.SubscriptionRepository = (*subscriptionRepoCacheDecorator)(nil)

// subscriptionRepoCacheDecorator serves FindByID from redis. Writes
// invalidate before delegating so a stale copy never outlives a commit.
type subscriptionRepoCacheDecorator struct {
	inner repository.SubscriptionRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewSubscriptionRepoCacheDecorator(inner repository.SubscriptionRepository, cache red.RedisClient, ttl time.Duration) repository.SubscriptionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &subscriptionRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func cacheKey(id string) string { return fmt.Sprintf("subscription:%s", id) }

func (d *subscriptionRepoCacheDecorator) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	key := cacheKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var sub model.Subscription
		if json.Unmarshal([]byte(val), &sub) == nil {
			metrics.IncCacheRequest("subscription", "hit")
			return &sub, nil
		}
	}

	metrics.IncCacheRequest("subscription", "miss")
	sub, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(sub); err == nil {
		d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return sub, nil
}

func (d *subscriptionRepoCacheDecorator) Create(ctx context.Context, sub *model.Subscription) error {
	d.cache.Del(ctx, cacheKey(sub.ID))
	return d.inner.Create(ctx, sub)
}

func (d *subscriptionRepoCacheDecorator) Update(ctx context.Context, sub *model.Subscription, expectedVersion int64) error {
	d.cache.Del(ctx, cacheKey(sub.ID))
	err := d.inner.Update(ctx, sub, expectedVersion)
	// The CAS may have raced with another writer that repopulated the
	// cache between our Del and the inner write. Drop it again.
	d.cache.Del(ctx, cacheKey(sub.ID))
	return err
}

// List and CountByStatus are filter-shaped and cheap relative to the
// hot FindByID path, so they always go to the database.
func (d *subscriptionRepoCacheDecorator) List(ctx context.Context, filter repository.ListFilter) ([]*model.Subscription, error) {
	return d.inner.List(ctx, filter)
}

func (d *subscriptionRepoCacheDecorator) CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	return d.inner.CountByStatus(ctx)
}
