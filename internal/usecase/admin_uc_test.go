package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"subscription-engine/internal/domain"
	"subscription-engine/internal/domain/model"
)

func newAdmin(t *testing.T) (*AdminUseCase, *SubscriptionUseCase, *memRecorder) {
	t.Helper()
	repo := newMemSubRepo()
	rec := newMemRecorder()
	pricing := mustPricing(t)
	subUC := NewSubscriptionUseCase(repo, pricing, rec)
	adminUC := NewAdminUseCase(repo, pricing, rec, newMemLocker())
	return adminUC, subUC, rec
}

func statusPtr(s model.SubscriptionStatus) *model.SubscriptionStatus { return &s }
func intPtr(v int) *int                                             { return &v }
func freqPtr(f model.Frequency) *model.Frequency                    { return &f }
func timePtr(t time.Time) *time.Time                                { return &t }

func TestAdminUseCase_ModifyQuantityAndDate(t *testing.T) {
	t.Parallel()

	admin, subUC, rec := newAdmin(t)
	sub := mustCreate(t, subUC, CreateParams{
		ProductID: "prod-1",
		UserID:    "user-1",
		UnitPrice: dec("1000"),
		Quantity:  2,
		Frequency: model.FrequencyMonthly,
		StartDate: date(2024, 1, 1),
	})

	got, err := admin.Modify(context.Background(), sub.ID, Patch{
		Quantity:         intPtr(5),
		NextDeliveryDate: timePtr(date(2024, 3, 1)),
	}, "admin-7")
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if !got.Amount.Equal(dec("4250")) {
		t.Fatalf("expected amount recomputed to 4250.00, got %s", got.Amount)
	}
	if !got.NextDeliveryDate.Equal(date(2024, 3, 1)) {
		t.Fatalf("expected next 2024-03-01, got %v", got.NextDeliveryDate)
	}

	events := rec.byAction(model.ActionAdminModify)
	if len(events) != 1 {
		t.Fatalf("expected one admin_modify audit event, got %d", len(events))
	}
	ev := events[0]
	if ev.ActorID != "admin-7" {
		t.Fatalf("expected actor admin-7, got %s", ev.ActorID)
	}
	if ev.Before["quantity"] != 2 || ev.After["quantity"] != 5 {
		t.Fatalf("expected quantity diff 2->5, got %v -> %v", ev.Before, ev.After)
	}
}

func TestAdminUseCase_ModifyStatusBypassesTransitionTable(t *testing.T) {
	t.Parallel()

	admin, subUC, _ := newAdmin(t)
	sub := mustCreate(t, subUC, weeklyParams())

	// completed is unreachable through customer actions; admin sets it
	// directly and the schedule is cleared.
	got, err := admin.Modify(context.Background(), sub.ID, Patch{
		Status: statusPtr(model.SubscriptionStatusCompleted),
	}, "admin-1")
	if err != nil {
		t.Fatalf("Modify to completed: %v", err)
	}
	if got.Status != model.SubscriptionStatusCompleted || got.NextDeliveryDate != nil {
		t.Fatalf("expected completed with nil schedule, got %s / %v", got.Status, got.NextDeliveryDate)
	}

	// And back to active: the schedule is recomputed from the anchor.
	revived, err := admin.Modify(context.Background(), sub.ID, Patch{
		Status: statusPtr(model.SubscriptionStatusActive),
	}, "admin-1")
	if err != nil {
		t.Fatalf("Modify back to active: %v", err)
	}
	if revived.NextDeliveryDate == nil {
		t.Fatalf("expected schedule recomputed on revival")
	}
}

func TestAdminUseCase_ModifyValidation(t *testing.T) {
	t.Parallel()

	admin, subUC, _ := newAdmin(t)
	sub := mustCreate(t, subUC, weeklyParams())

	if _, err := admin.Modify(context.Background(), sub.ID, Patch{Quantity: intPtr(0)}, "admin-1"); !errors.Is(err, domain.ErrInvalidInput) && !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("zero quantity: expected invalid input/validation, got %v", err)
	}
	// Fixed frequency with a custom interval is an invariant violation.
	if _, err := admin.Modify(context.Background(), sub.ID, Patch{
		Frequency:      freqPtr(model.FrequencyMonthly),
		CustomInterval: &model.CustomInterval{Value: 2, Unit: model.IntervalUnitWeeks},
	}, "admin-1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("interval mismatch: expected ErrValidation, got %v", err)
	}
	// Custom frequency without an interval likewise.
	if _, err := admin.Modify(context.Background(), sub.ID, Patch{
		Frequency: freqPtr(model.FrequencyCustom),
	}, "admin-1"); !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("custom without interval: expected ErrValidation, got %v", err)
	}
	// A next date before the start date violates the schedule invariant.
	if _, err := admin.Modify(context.Background(), sub.ID, Patch{
		NextDeliveryDate: timePtr(date(2020, 1, 1)),
	}, "admin-1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("next before start: expected ErrValidation, got %v", err)
	}
	if _, err := admin.Modify(context.Background(), sub.ID, Patch{}, "admin-1"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty patch: expected ErrInvalidInput, got %v", err)
	}
	if _, err := admin.Modify(context.Background(), sub.ID, Patch{Quantity: intPtr(2)}, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("missing actor: expected ErrInvalidInput, got %v", err)
	}
}

func TestAdminUseCase_CanceledIsImmutable(t *testing.T) {
	t.Parallel()

	admin, subUC, _ := newAdmin(t)
	sub := mustCreate(t, subUC, weeklyParams())
	if _, err := subUC.Cancel(context.Background(), sub.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, err := admin.Modify(context.Background(), sub.ID, Patch{Quantity: intPtr(3)}, "admin-1"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("modify canceled: expected ErrInvalidState, got %v", err)
	}
	if _, err := admin.Extend(context.Background(), sub.ID, 30, "admin-1"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("extend canceled: expected ErrInvalidState, got %v", err)
	}
}

func TestAdminUseCase_Extend(t *testing.T) {
	t.Parallel()

	admin, subUC, rec := newAdmin(t)
	sub := mustCreate(t, subUC, CreateParams{
		ProductID: "prod-1",
		UserID:    "user-1",
		UnitPrice: dec("25"),
		Quantity:  1,
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, 1, 25),
	})
	// next = 2024-02-01; +30 calendar days, not cycles.
	got, err := admin.Extend(context.Background(), sub.ID, 30, "admin-2")
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if !got.NextDeliveryDate.Equal(date(2024, 3, 2)) {
		t.Fatalf("expected next 2024-03-02, got %v", got.NextDeliveryDate)
	}

	if _, err := admin.Extend(context.Background(), sub.ID, 0, "admin-2"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("zero days: expected ErrInvalidInput, got %v", err)
	}

	events := rec.byAction(model.ActionAdminExtend)
	if len(events) != 1 {
		t.Fatalf("expected one admin_extend event, got %d", len(events))
	}
	if events[0].ActorID != "admin-2" {
		t.Fatalf("expected actor admin-2, got %s", events[0].ActorID)
	}
}

func TestAdminUseCase_LockContention(t *testing.T) {
	t.Parallel()

	repo := newMemSubRepo()
	rec := newMemRecorder()
	pricing := mustPricing(t)
	locker := newMemLocker()
	subUC := NewSubscriptionUseCase(repo, pricing, rec)
	admin := NewAdminUseCase(repo, pricing, rec, locker)
	sub := mustCreate(t, subUC, weeklyParams())

	// Hold the lock as if another admin request were in flight.
	key := "lock:subscription:" + sub.ID
	if _, err := locker.TryLock(context.Background(), key, time.Minute); err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if _, err := admin.Extend(context.Background(), sub.ID, 7, "admin-1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict while locked, got %v", err)
	}
}
