package adapter

import (
	"context"
	"time"
)

// Locker provides best-effort per-key mutual exclusion. The engine's
// correctness rests on the repository's version check-and-set; the lock
// only keeps concurrent admin edits from burning retries against each
// other. TryLock returns domain.ErrConflict when the key stays held.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
