package model

import (
	"fmt"

	"github.com/shopspring/decimal"

	"subscription-engine/internal/domain"
)

// DiscountTable maps a frequency tier to its discount percentage.
// It is configuration-driven data: deployments override individual tiers
// without touching the state machine.
type DiscountTable map[Frequency]decimal.Decimal

// DefaultDiscountTable returns the stock tier table. Yearly carries no
// discount unless a deployment configures one.
func DefaultDiscountTable() DiscountTable {
	return DiscountTable{
		FrequencyWeekly:    decimal.NewFromInt(5),
		FrequencyBiweekly:  decimal.NewFromInt(8),
		FrequencyMonthly:   decimal.NewFromInt(15),
		FrequencyQuarterly: decimal.NewFromInt(20),
		FrequencyYearly:    decimal.Zero,
		FrequencyCustom:    decimal.NewFromInt(10),
	}
}

var hundred = decimal.NewFromInt(100)

func (t DiscountTable) Validate() error {
	for freq, pct := range t {
		if !freq.Valid() {
			return domain.NewFieldError(domain.ErrInvalidInput, "pricing.tiers", fmt.Sprintf("unknown frequency %q", freq))
		}
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return domain.NewFieldError(domain.ErrInvalidInput, "pricing.tiers", fmt.Sprintf("discount for %s must be within [0,100], got %s", freq, pct))
		}
	}
	return nil
}
