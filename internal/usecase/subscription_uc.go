package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"subscription-engine/internal/domain"
	"subscription-engine/internal/domain/model"
	"subscription-engine/internal/domain/ports/adapter"
	"subscription-engine/internal/domain/ports/repository"
)

// SubscriptionUseCase owns the customer-facing subscription lifecycle.
// Every mutation is a read-modify-write against the repository's version
// check-and-set, so concurrent writers surface domain.ErrConflict instead
// of silently merged partial state. Derived fields (Amount,
// NextDeliveryDate) are recomputed synchronously before any write.
type SubscriptionUseCase struct {
	repo    repository.SubscriptionRepository
	pricing *PricingCalculator
	sched   ScheduleCalculator
	audit   adapter.AuditRecorder
}

func NewSubscriptionUseCase(repo repository.SubscriptionRepository, pricing *PricingCalculator, audit adapter.AuditRecorder) *SubscriptionUseCase {
	return &SubscriptionUseCase{repo: repo, pricing: pricing, audit: audit}
}

// CreateParams carries the checkout-confirmation inputs. UnitPrice is the
// product price snapshot; later product price changes never touch existing
// subscriptions.
type CreateParams struct {
	ProductID      string
	UserID         string
	UnitPrice      decimal.Decimal
	Quantity       int
	Frequency      model.Frequency
	CustomInterval *model.CustomInterval
	StartDate      time.Time
}

// Create validates the params, derives amount and the first delivery date
// (one cycle after the start date), persists the record and emits the
// audit event.
func (uc *SubscriptionUseCase) Create(ctx context.Context, p CreateParams) (*model.Subscription, error) {
	sub, err := model.NewSubscription(uuid.NewString(), p.ProductID, p.UserID, p.UnitPrice, p.Quantity, p.Frequency, p.CustomInterval, p.StartDate)
	if err != nil {
		return nil, err
	}
	if sub.Amount, err = uc.pricing.Amount(sub.UnitPrice, sub.Quantity, sub.Frequency); err != nil {
		return nil, err
	}
	next, err := uc.sched.NextDate(sub.StartDate, sub.Frequency, sub.CustomInterval)
	if err != nil {
		return nil, err
	}
	sub.NextDeliveryDate = &next
	if err := uc.repo.Create(ctx, sub); err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, model.NewAuditEvent(sub.UserID, model.ActionCreate, sub.ID, nil, model.Snapshot(sub)))
	return sub, nil
}

// Get returns a single subscription.
func (uc *SubscriptionUseCase) Get(ctx context.Context, id string) (*model.Subscription, error) {
	return uc.repo.FindByID(ctx, id)
}

// List returns subscriptions matching the filter.
func (uc *SubscriptionUseCase) List(ctx context.Context, filter repository.ListFilter) ([]*model.Subscription, error) {
	return uc.repo.List(ctx, filter)
}

func (uc *SubscriptionUseCase) Pause(ctx context.Context, id string) (*model.Subscription, error) {
	return uc.transition(ctx, id, model.ActionPause, nil)
}

func (uc *SubscriptionUseCase) Resume(ctx context.Context, id string) (*model.Subscription, error) {
	return uc.transition(ctx, id, model.ActionResume, nil)
}

// Skip advances the schedule by exactly one cycle from the current next
// date; the anchor moves up to the skipped date. It never recomputes from
// "today".
func (uc *SubscriptionUseCase) Skip(ctx context.Context, id string) (*model.Subscription, error) {
	return uc.transition(ctx, id, model.ActionSkip, func(sub *model.Subscription) error {
		skipped := *sub.NextDeliveryDate
		next, err := uc.sched.SkipForward(skipped, sub.Frequency, sub.CustomInterval)
		if err != nil {
			return err
		}
		sub.AnchorDate = skipped
		sub.NextDeliveryDate = &next
		return nil
	})
}

// Cancel is terminal: the record is retained but never transitions again.
func (uc *SubscriptionUseCase) Cancel(ctx context.Context, id string) (*model.Subscription, error) {
	return uc.transition(ctx, id, model.ActionCancel, func(sub *model.Subscription) error {
		sub.NextDeliveryDate = nil
		return nil
	})
}

func (uc *SubscriptionUseCase) UpdateQuantity(ctx context.Context, id string, quantity int) (*model.Subscription, error) {
	if quantity < 1 {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "quantity", fmt.Sprintf("must be >= 1, got %d", quantity))
	}
	return uc.transition(ctx, id, model.ActionUpdateQuantity, func(sub *model.Subscription) error {
		sub.Quantity = quantity
		amount, err := uc.pricing.Amount(sub.UnitPrice, sub.Quantity, sub.Frequency)
		if err != nil {
			return err
		}
		sub.Amount = amount
		return nil
	})
}

// UpdateFrequency switches the cadence, recomputing both the amount and the
// next delivery date from the current anchor under the new frequency.
func (uc *SubscriptionUseCase) UpdateFrequency(ctx context.Context, id string, freq model.Frequency, interval *model.CustomInterval) (*model.Subscription, error) {
	if !freq.Valid() {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "frequency", fmt.Sprintf("unrecognized frequency %q", freq))
	}
	if freq == model.FrequencyCustom {
		if err := interval.Validate(); err != nil {
			return nil, err
		}
	} else if interval != nil {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "customInterval", "only allowed with custom frequency")
	}
	return uc.transition(ctx, id, model.ActionUpdateFrequency, func(sub *model.Subscription) error {
		sub.Frequency = freq
		sub.CustomInterval = interval
		amount, err := uc.pricing.Amount(sub.UnitPrice, sub.Quantity, sub.Frequency)
		if err != nil {
			return err
		}
		next, err := uc.sched.NextDate(sub.AnchorDate, freq, interval)
		if err != nil {
			return err
		}
		sub.Amount = amount
		sub.NextDeliveryDate = &next
		return nil
	})
}

// transition loads the record, consults the transition table, applies the
// side effect, and writes back under the loaded version. The record is
// left unmodified on any failure.
func (uc *SubscriptionUseCase) transition(ctx context.Context, id string, action model.Action, sideEffect func(*model.Subscription) error) (*model.Subscription, error) {
	sub, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	to, ok := model.NextStatus(sub.Status, action)
	if !ok {
		return nil, &domain.TransitionError{From: string(sub.Status), Action: string(action)}
	}

	before := sub.Clone()
	expected := sub.Version
	sub.Status = to
	if sideEffect != nil {
		if err := sideEffect(sub); err != nil {
			return nil, err
		}
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := uc.repo.Update(ctx, sub, expected); err != nil {
		return nil, err
	}
	beforeFields, afterFields := model.Diff(before, sub)
	uc.audit.Record(ctx, model.NewAuditEvent(sub.UserID, action, sub.ID, beforeFields, afterFields))
	return sub, nil
}
