package web

import (
	"context"
	"sync"

	"subscription-engine/internal/domain"
	"subscription-engine/internal/domain/model"
	"subscription-engine/internal/domain/ports/repository"
)

//
// -------------------- in-memory repository --------------------
//

type memSubRepo struct {
	mu    sync.Mutex
	store map[string]*model.Subscription
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: map[string]*model.Subscription{}}
}

func (r *memSubRepo) Create(_ context.Context, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[sub.ID] = sub.Clone()
	return nil
}

func (r *memSubRepo) Update(_ context.Context, sub *model.Subscription, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.store[sub.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrConflict
	}
	sub.Version = expectedVersion + 1
	r.store[sub.ID] = sub.Clone()
	return nil
}

func (r *memSubRepo) FindByID(_ context.Context, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sub.Clone(), nil
}

func (r *memSubRepo) List(_ context.Context, filter repository.ListFilter) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range r.store {
		if filter.UserID != "" && sub.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		out = append(out, sub.Clone())
	}
	return out, nil
}

func (r *memSubRepo) CountByStatus(_ context.Context) (map[model.SubscriptionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.SubscriptionStatus]int)
	for _, sub := range r.store {
		counts[sub.Status]++
	}
	return counts, nil
}

//
// -------------------- audit recorder --------------------
//

type memRecorder struct {
	mu     sync.Mutex
	events []*model.AuditEvent
}

func newMemRecorder() *memRecorder { return &memRecorder{} }

func (r *memRecorder) Record(_ context.Context, event *model.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *memRecorder) last() *model.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}
