package usecase

import (
	"context"

	"github.com/samber/lo"

	"subscription-engine/internal/domain/model"
	"subscription-engine/internal/domain/ports/repository"
)

// StatsUseCase feeds the admin dashboard and the subscriptions gauge.
type StatsUseCase struct {
	repo repository.SubscriptionRepository
}

func NewStatsUseCase(repo repository.SubscriptionRepository) *StatsUseCase {
	return &StatsUseCase{repo: repo}
}

// Totals returns the per-status subscription counts plus the grand total.
func (uc *StatsUseCase) Totals(ctx context.Context) (map[model.SubscriptionStatus]int, int, error) {
	counts, err := uc.repo.CountByStatus(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := lo.Sum(lo.Values(counts))
	return counts, total, nil
}
