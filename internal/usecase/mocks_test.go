package usecase

import (
	"context"
	"sync"
	"time"

	"subscription-engine/internal/domain"
	"subscription-engine/internal/domain/model"
	"subscription-engine/internal/domain/ports/repository"
)

// memSubRepo is a small in-memory SubscriptionRepository used by unit
// tests. Update honors the version check-and-set contract so conflict
// paths are exercisable without a database.
type memSubRepo struct {
	mu    sync.Mutex
	store map[string]*model.Subscription
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubRepo) Create(ctx context.Context, sub *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[sub.ID]; ok {
		return domain.ErrOperationFailed
	}
	m.store[sub.ID] = sub.Clone()
	return nil
}

func (m *memSubRepo) Update(ctx context.Context, sub *model.Subscription, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[sub.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrConflict
	}
	sub.Version = expectedVersion + 1
	m.store[sub.ID] = sub.Clone()
	return nil
}

func (m *memSubRepo) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memSubRepo) List(ctx context.Context, filter repository.ListFilter) ([]*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if filter.UserID != "" && s.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, s.Clone())
	}
	return out, nil
}

func (m *memSubRepo) CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.SubscriptionStatus]int)
	for _, s := range m.store {
		counts[s.Status]++
	}
	return counts, nil
}

// memRecorder captures emitted audit events for assertions.
type memRecorder struct {
	mu     sync.Mutex
	events []*model.AuditEvent
}

func newMemRecorder() *memRecorder { return &memRecorder{} }

func (r *memRecorder) Record(ctx context.Context, ev *model.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *memRecorder) byAction(action model.Action) []*model.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AuditEvent
	for _, ev := range r.events {
		if ev.Action == action {
			out = append(out, ev)
		}
	}
	return out
}

// memLocker is a single-process Locker for admin-usecase tests.
type memLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newMemLocker() *memLocker { return &memLocker{held: make(map[string]string)} }

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrConflict
	}
	token := key + "-token"
	l.held[key] = token
	return token, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// --- shared helpers ---

func mustPricing(t interface{ Fatalf(string, ...any) }) *PricingCalculator {
	calc, err := NewPricingCalculator(nil)
	if err != nil {
		t.Fatalf("NewPricingCalculator: %v", err)
	}
	return calc
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
