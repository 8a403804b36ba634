package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"subscription-engine/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCanceled  SubscriptionStatus = "canceled"
	SubscriptionStatusCompleted SubscriptionStatus = "completed"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusPaused, SubscriptionStatusCanceled, SubscriptionStatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions
// (canceled) or schedule (canceled/completed).
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionStatusCanceled || s == SubscriptionStatusCompleted
}

// Action is a customer-facing operation on a subscription.
type Action string

const (
	ActionCreate          Action = "create"
	ActionPause           Action = "pause"
	ActionResume          Action = "resume"
	ActionSkip            Action = "skip"
	ActionCancel          Action = "cancel"
	ActionUpdateQuantity  Action = "update_quantity"
	ActionUpdateFrequency Action = "update_frequency"
	ActionAdminModify     Action = "admin_modify"
	ActionAdminExtend     Action = "admin_extend"
)

// transitions is the canonical customer-facing transition table.
// Tagged data, not branching code: adding a state or action means adding
// an entry here, not editing the state machine.
var transitions = map[SubscriptionStatus]map[Action]SubscriptionStatus{
	SubscriptionStatusActive: {
		ActionPause:           SubscriptionStatusPaused,
		ActionSkip:            SubscriptionStatusActive,
		ActionCancel:          SubscriptionStatusCanceled,
		ActionUpdateQuantity:  SubscriptionStatusActive,
		ActionUpdateFrequency: SubscriptionStatusActive,
	},
	SubscriptionStatusPaused: {
		ActionResume:          SubscriptionStatusActive,
		ActionCancel:          SubscriptionStatusCanceled,
		ActionUpdateQuantity:  SubscriptionStatusPaused,
		ActionUpdateFrequency: SubscriptionStatusPaused,
	},
}

// NextStatus resolves the transition table for (from, action).
func NextStatus(from SubscriptionStatus, action Action) (SubscriptionStatus, bool) {
	to, ok := transitions[from][action]
	return to, ok
}

// Subscription is a customer's recurring delivery/billing record.
// UnitPrice is a snapshot of the product price at subscribe time and never
// changes afterwards; Amount is derived and recomputed on every mutation
// that touches quantity or frequency.
type Subscription struct {
	ID             string             `json:"id"`
	ProductID      string             `json:"product_id"`
	UserID         string             `json:"user_id"`
	Status         SubscriptionStatus `json:"status"`
	Frequency      Frequency          `json:"frequency"`
	CustomInterval *CustomInterval    `json:"custom_interval,omitempty"`
	Quantity       int                `json:"quantity"`
	UnitPrice      decimal.Decimal    `json:"unit_price"`
	Amount         decimal.Decimal    `json:"amount"`
	StartDate      time.Time          `json:"start_date"`
	// AnchorDate is the date the current NextDeliveryDate was computed from.
	// StartDate at creation; advanced to the previous NextDeliveryDate when
	// a cycle is skipped.
	AnchorDate       time.Time  `json:"anchor_date"`
	NextDeliveryDate *time.Time `json:"next_delivery_date,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DateOnly truncates t to a UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewSubscription validates inputs and constructs an active subscription.
// Amount and NextDeliveryDate are filled in by the engine via the pricing
// and schedule calculators before the record is persisted.
func NewSubscription(id, productID, userID string, unitPrice decimal.Decimal, quantity int, freq Frequency, interval *CustomInterval, startDate time.Time) (*Subscription, error) {
	if id == "" || productID == "" || userID == "" {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "id", "id, productId and userId are required")
	}
	if unitPrice.IsNegative() {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "unitPrice", fmt.Sprintf("must be non-negative, got %s", unitPrice))
	}
	if quantity < 1 {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "quantity", fmt.Sprintf("must be >= 1, got %d", quantity))
	}
	if !freq.Valid() {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "frequency", fmt.Sprintf("unrecognized frequency %q", freq))
	}
	if freq == FrequencyCustom {
		if err := interval.Validate(); err != nil {
			return nil, err
		}
	} else if interval != nil {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "customInterval", "only allowed with custom frequency")
	}
	if startDate.IsZero() {
		return nil, domain.NewFieldError(domain.ErrInvalidInput, "startDate", "required")
	}
	now := time.Now().UTC()
	start := DateOnly(startDate)
	return &Subscription{
		ID:             id,
		ProductID:      productID,
		UserID:         userID,
		Status:         SubscriptionStatusActive,
		Frequency:      freq,
		CustomInterval: interval,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		StartDate:      start,
		AnchorDate:     start,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Clone returns a deep copy, detaching the pointer fields.
func (s *Subscription) Clone() *Subscription {
	cp := *s
	if s.NextDeliveryDate != nil {
		d := *s.NextDeliveryDate
		cp.NextDeliveryDate = &d
	}
	if s.CustomInterval != nil {
		ci := *s.CustomInterval
		cp.CustomInterval = &ci
	}
	return &cp
}

// Validate checks every record invariant. It is run after admin overrides,
// which bypass the transition table but may never persist an invalid record.
func (s *Subscription) Validate() error {
	if s.Quantity < 1 {
		return domain.NewFieldError(domain.ErrValidation, "quantity", fmt.Sprintf("must be >= 1, got %d", s.Quantity))
	}
	if s.UnitPrice.IsNegative() {
		return domain.NewFieldError(domain.ErrValidation, "unitPrice", "must be non-negative")
	}
	if !s.Status.Valid() {
		return domain.NewFieldError(domain.ErrValidation, "status", fmt.Sprintf("unknown status %q", s.Status))
	}
	if !s.Frequency.Valid() {
		return domain.NewFieldError(domain.ErrValidation, "frequency", fmt.Sprintf("unrecognized frequency %q", s.Frequency))
	}
	if s.Frequency == FrequencyCustom {
		if s.CustomInterval == nil {
			return domain.NewFieldError(domain.ErrValidation, "customInterval", "required for custom frequency")
		}
		if s.CustomInterval.Value < 1 || !s.CustomInterval.Unit.Valid() {
			return domain.NewFieldError(domain.ErrValidation, "customInterval", "invalid interval")
		}
	} else if s.CustomInterval != nil {
		return domain.NewFieldError(domain.ErrValidation, "customInterval", "only allowed with custom frequency")
	}
	if s.Status.Terminal() {
		if s.NextDeliveryDate != nil {
			return domain.NewFieldError(domain.ErrValidation, "nextDeliveryDate", fmt.Sprintf("must be null while %s", s.Status))
		}
		return nil
	}
	if s.NextDeliveryDate == nil {
		return domain.NewFieldError(domain.ErrValidation, "nextDeliveryDate", fmt.Sprintf("required while %s", s.Status))
	}
	if s.NextDeliveryDate.Before(s.StartDate) {
		return domain.NewFieldError(domain.ErrValidation, "nextDeliveryDate", "must not precede startDate")
	}
	return nil
}
