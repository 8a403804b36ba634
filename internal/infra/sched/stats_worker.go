// File: internal/infra/sched/stats_worker.go
package sched

import (
	"context"
	"time"

	"subscription-engine/internal/infra/metrics"
	"subscription-engine/internal/usecase"

	"github.com/rs/zerolog"
)

// StatsWorker periodically refreshes the per-status subscriptions gauge
// from the database.
type StatsWorker struct {
	interval time.Duration
	statsUC  *usecase.StatsUseCase
	log      *zerolog.Logger
}

func NewStatsWorker(interval time.Duration, statsUC *usecase.StatsUseCase, logger *zerolog.Logger) *StatsWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatsWorker{interval: interval, statsUC: statsUC, log: logger}
}

// Run blocks until ctx is canceled. A failed refresh is logged and
// retried on the next tick.
func (w *StatsWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *StatsWorker) refresh(ctx context.Context) {
	counts, _, err := w.statsUC.Totals(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("stats refresh failed")
		return
	}
	metrics.SetSubscriptionsTotal(counts)
}
