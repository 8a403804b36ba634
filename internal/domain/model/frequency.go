package model

import (
	"fmt"

	"subscription-engine/internal/domain"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyCustom    Frequency = "custom"
)

// Frequencies lists every supported billing/delivery cadence.
var Frequencies = []Frequency{
	FrequencyWeekly,
	FrequencyBiweekly,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencyYearly,
	FrequencyCustom,
}

func (f Frequency) Valid() bool {
	for _, known := range Frequencies {
		if f == known {
			return true
		}
	}
	return false
}

type IntervalUnit string

const (
	IntervalUnitDays   IntervalUnit = "days"
	IntervalUnitWeeks  IntervalUnit = "weeks"
	IntervalUnitMonths IntervalUnit = "months"
)

func (u IntervalUnit) Valid() bool {
	switch u {
	case IntervalUnitDays, IntervalUnitWeeks, IntervalUnitMonths:
		return true
	}
	return false
}

// CustomInterval is the cadence of a custom-frequency subscription:
// every Value units of Unit. Set iff Frequency == custom.
type CustomInterval struct {
	Value int          `json:"value"`
	Unit  IntervalUnit `json:"unit"`
}

func (ci *CustomInterval) Validate() error {
	if ci == nil {
		return domain.NewFieldError(domain.ErrInvalidInput, "customInterval", "required for custom frequency")
	}
	if ci.Value < 1 {
		return domain.NewFieldError(domain.ErrInvalidInput, "customInterval.value", fmt.Sprintf("must be a positive integer, got %d", ci.Value))
	}
	if !ci.Unit.Valid() {
		return domain.NewFieldError(domain.ErrInvalidInput, "customInterval.unit", fmt.Sprintf("unsupported unit %q", ci.Unit))
	}
	return nil
}

func (ci *CustomInterval) String() string {
	if ci == nil {
		return ""
	}
	return fmt.Sprintf("%d %s", ci.Value, ci.Unit)
}
