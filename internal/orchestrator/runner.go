package orchestrator

import (
	"context"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/logger"
)

// PeriodicRunner drives Tick on a fixed interval using absolute
// deadlines rather than a fixed-delay ticker: each cycle's deadline is
// computed from the previous deadline, not from when the previous
// cycle happened to finish, so a slow tick shortens (never skips) the
// wait before the next one instead of letting ticks drift or coalesce.
type PeriodicRunner struct {
	interval time.Duration
	tick     func(ctx context.Context) error
}

func NewPeriodicRunner(interval time.Duration, tick func(ctx context.Context) error) *PeriodicRunner {
	return &PeriodicRunner{interval: interval, tick: tick}
}

// Run blocks, calling tick once per interval, until ctx is cancelled.
// Every cycle runs to completion before the next is considered, even
// if that means the next deadline has already passed — ticks are
// never dropped or run concurrently with each other.
func (r *PeriodicRunner) Run(ctx context.Context) {
	deadline := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return
		}

		if err := r.tick(ctx); err != nil {
			logger.Errorf("tick failed: %v", err)
		}

		deadline = deadline.Add(r.interval)
		wait := time.Until(deadline)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
