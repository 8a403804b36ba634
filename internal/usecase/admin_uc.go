package usecase

import (
	"context"
	"fmt"
	"time"

	"subscription-engine/internal/domain"
	"subscription-engine/internal/domain/model"
	"subscription-engine/internal/domain/ports/adapter"
	"subscription-engine/internal/domain/ports/repository"
)

// adminLockTTL bounds how long a crashed admin request can hold a
// subscription lock.
const adminLockTTL = 10 * time.Second

// AdminUseCase is the privileged override layer. Its operations bypass the
// customer transition table but re-validate every record invariant before
// writing, and every call requires an authenticated actor identity.
// A per-subscription lock keeps concurrent admin edits from spinning on
// version conflicts; correctness still rests on the repository's
// check-and-set.
type AdminUseCase struct {
	repo    repository.SubscriptionRepository
	pricing *PricingCalculator
	sched   ScheduleCalculator
	audit   adapter.AuditRecorder
	locker  adapter.Locker
}

func NewAdminUseCase(repo repository.SubscriptionRepository, pricing *PricingCalculator, audit adapter.AuditRecorder, locker adapter.Locker) *AdminUseCase {
	return &AdminUseCase{repo: repo, pricing: pricing, audit: audit, locker: locker}
}

// Patch is a subset of directly assignable fields. Nil means "leave as is".
// CustomInterval travels with Frequency; the invariant check rejects a
// mismatch.
type Patch struct {
	Status           *model.SubscriptionStatus
	Quantity         *int
	Frequency        *model.Frequency
	CustomInterval   *model.CustomInterval
	NextDeliveryDate *time.Time
}

func (p Patch) empty() bool {
	return p.Status == nil && p.Quantity == nil && p.Frequency == nil && p.CustomInterval == nil && p.NextDeliveryDate == nil
}

// Modify applies the patch, recomputes derived fields, and re-validates the
// resulting record. A canceled subscription is immutable.
func (uc *AdminUseCase) Modify(ctx context.Context, id string, patch Patch, actorID string) (*model.Subscription, error) {
	if actorID == "" {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "actorId", "required")
	}
	if patch.empty() {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "patch", "at least one field is required")
	}

	unlock, err := uc.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sub, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == model.SubscriptionStatusCanceled {
		return nil, fmt.Errorf("%w: subscription %s is canceled", domain.ErrInvalidState, id)
	}

	before := sub.Clone()
	expected := sub.Version

	if patch.Status != nil {
		sub.Status = *patch.Status
	}
	if patch.Quantity != nil {
		sub.Quantity = *patch.Quantity
	}
	freqChanged := false
	if patch.Frequency != nil {
		sub.Frequency = *patch.Frequency
		sub.CustomInterval = patch.CustomInterval
		freqChanged = sub.Frequency != before.Frequency
	} else if patch.CustomInterval != nil {
		sub.CustomInterval = patch.CustomInterval
		freqChanged = true
	}
	if patch.NextDeliveryDate != nil {
		d := model.DateOnly(*patch.NextDeliveryDate)
		sub.NextDeliveryDate = &d
	}

	if sub.Status.Terminal() {
		sub.NextDeliveryDate = nil
	} else if (freqChanged && patch.NextDeliveryDate == nil) || sub.NextDeliveryDate == nil {
		// Frequency changed without an explicit date, or the record is being
		// revived from completed: recompute from the anchor.
		next, err := uc.sched.NextDate(sub.AnchorDate, sub.Frequency, sub.CustomInterval)
		if err != nil {
			return nil, err
		}
		sub.NextDeliveryDate = &next
	}

	// The amount invariant holds after any mutation, so recompute
	// unconditionally rather than tracking which inputs moved.
	amount, err := uc.pricing.Amount(sub.UnitPrice, sub.Quantity, sub.Frequency)
	if err != nil {
		return nil, err
	}
	sub.Amount = amount

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := uc.repo.Update(ctx, sub, expected); err != nil {
		return nil, err
	}
	beforeFields, afterFields := model.Diff(before, sub)
	uc.audit.Record(ctx, model.NewAuditEvent(actorID, model.ActionAdminModify, sub.ID, beforeFields, afterFields))
	return sub, nil
}

// Extend pushes the next delivery date forward by calendar days, not
// cycles. It applies to any subscription that still has a schedule.
func (uc *AdminUseCase) Extend(ctx context.Context, id string, days int, actorID string) (*model.Subscription, error) {
	if actorID == "" {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "actorId", "required")
	}
	if days < 1 {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "days", fmt.Sprintf("must be a positive integer, got %d", days))
	}

	unlock, err := uc.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sub, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.NextDeliveryDate == nil {
		return nil, fmt.Errorf("%w: subscription %s has no scheduled delivery", domain.ErrInvalidState, id)
	}

	before := sub.Clone()
	expected := sub.Version
	next := sub.NextDeliveryDate.AddDate(0, 0, days)
	sub.NextDeliveryDate = &next
	sub.UpdatedAt = time.Now().UTC()

	if err := uc.repo.Update(ctx, sub, expected); err != nil {
		return nil, err
	}
	beforeFields, afterFields := model.Diff(before, sub)
	uc.audit.Record(ctx, model.NewAuditEvent(actorID, model.ActionAdminExtend, sub.ID, beforeFields, afterFields))
	return sub, nil
}

func (uc *AdminUseCase) lock(ctx context.Context, id string) (func(), error) {
	if uc.locker == nil {
		return func() {}, nil
	}
	key := "lock:subscription:" + id
	token, err := uc.locker.TryLock(ctx, key, adminLockTTL)
	if err != nil {
		return nil, err
	}
	return func() { _ = uc.locker.Unlock(ctx, key, token) }, nil
}
