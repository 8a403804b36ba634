package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"subscription-engine/internal/domain"
	"subscription-engine/internal/domain/model"
)

// PricingCalculator converts a unit price, quantity and frequency into the
// per-delivery charge. Pure: no side effects, safe for unrestricted
// concurrent use (the tier table is read-only after construction).
type PricingCalculator struct {
	tiers model.DiscountTable
}

// NewPricingCalculator builds a calculator over the given tier table.
// A nil table selects the stock tiers.
func NewPricingCalculator(tiers model.DiscountTable) (*PricingCalculator, error) {
	if tiers == nil {
		tiers = model.DefaultDiscountTable()
	}
	if err := tiers.Validate(); err != nil {
		return nil, err
	}
	// Copy so later config mutation cannot race concurrent reads.
	owned := make(model.DiscountTable, len(tiers))
	for f, pct := range tiers {
		owned[f] = pct
	}
	return &PricingCalculator{tiers: owned}, nil
}

// Discount returns the discount percentage for a frequency tier.
func (c *PricingCalculator) Discount(freq model.Frequency) (decimal.Decimal, error) {
	if !freq.Valid() {
		return decimal.Zero, domain.NewFieldError(domain.ErrInvalidInput, "frequency", fmt.Sprintf("unrecognized frequency %q", freq))
	}
	pct, ok := c.tiers[freq]
	if !ok {
		// Frequency is known but the deployment table has no tier for it.
		return decimal.Zero, nil
	}
	return pct, nil
}

var one = decimal.NewFromInt(1)

// Amount computes unitPrice * quantity * (1 - discount/100), rounded to the
// currency minor unit with round-half-to-even so repeated billing cycles
// carry no systematic bias.
func (c *PricingCalculator) Amount(unitPrice decimal.Decimal, quantity int, freq model.Frequency) (decimal.Decimal, error) {
	if unitPrice.IsNegative() {
		return decimal.Zero, domain.NewFieldError(domain.ErrInvalidInput, "unitPrice", fmt.Sprintf("must be non-negative, got %s", unitPrice))
	}
	if quantity < 1 {
		return decimal.Zero, domain.NewFieldError(domain.ErrInvalidInput, "quantity", fmt.Sprintf("must be >= 1, got %d", quantity))
	}
	pct, err := c.Discount(freq)
	if err != nil {
		return decimal.Zero, err
	}
	factor := one.Sub(pct.Div(hundred))
	amount := unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Mul(factor)
	return amount.RoundBank(2), nil
}

var hundred = decimal.NewFromInt(100)
