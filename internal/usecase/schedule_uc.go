package usecase

import (
	"fmt"
	"time"

	"subscription-engine/internal/domain"
	"subscription-engine/internal/domain/model"
)

// ScheduleCalculator derives delivery/billing dates. Pure and deterministic:
// all arithmetic is calendar-aware, never naive fixed-day-count months.
type ScheduleCalculator struct{}

// NextDate returns the delivery date one cycle after anchor. Month and year
// steps clamp the day-of-month to the target month's last day
// (Jan 31 + 1 month -> Feb 28/29).
func (ScheduleCalculator) NextDate(anchor time.Time, freq model.Frequency, interval *model.CustomInterval) (time.Time, error) {
	anchor = model.DateOnly(anchor)
	switch freq {
	case model.FrequencyWeekly:
		return addClampedDate(anchor, 0, 0, 7), nil
	case model.FrequencyBiweekly:
		return addClampedDate(anchor, 0, 0, 14), nil
	case model.FrequencyMonthly:
		return addClampedDate(anchor, 0, 1, 0), nil
	case model.FrequencyQuarterly:
		return addClampedDate(anchor, 0, 3, 0), nil
	case model.FrequencyYearly:
		return addClampedDate(anchor, 1, 0, 0), nil
	case model.FrequencyCustom:
		if err := interval.Validate(); err != nil {
			return time.Time{}, err
		}
		switch interval.Unit {
		case model.IntervalUnitDays:
			return addClampedDate(anchor, 0, 0, interval.Value), nil
		case model.IntervalUnitWeeks:
			return addClampedDate(anchor, 0, 0, 7*interval.Value), nil
		default: // months, interval already validated
			return addClampedDate(anchor, 0, interval.Value, 0), nil
		}
	default:
		return time.Time{}, domain.NewFieldError(domain.ErrInvalidInput, "frequency", fmt.Sprintf("unrecognized frequency %q", freq))
	}
}

// SkipForward advances the schedule by exactly one more cycle from the
// current next date. It never resets to "today": skipping twice lands on
// the same date as two NextDate steps from the original anchor.
func (c ScheduleCalculator) SkipForward(currentNext time.Time, freq model.Frequency, interval *model.CustomInterval) (time.Time, error) {
	return c.NextDate(currentNext, freq, interval)
}

// addClampedDate adds years/months/days with day-of-month clamping instead
// of time.AddDate's overflow-into-next-month behavior.
func addClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()

	newY := y + years
	newM := int(m) + months
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	if last := lastDayOfMonth(newY, time.Month(newM)); d > last {
		d = last
	}
	shifted := time.Date(newY, time.Month(newM), d, 0, 0, 0, 0, t.Location())
	return shifted.AddDate(0, 0, days)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
