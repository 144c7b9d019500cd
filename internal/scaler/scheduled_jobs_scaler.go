package scaler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/clock"
)

// backlogSource is the narrow relational-store collaborator
// ScheduledJobsScaler depends on.
type backlogSource interface {
	ScheduledJobsBacklog(ctx context.Context, lookahead string) (int, error)
}

const scheduledJobsBreakerCooldown = 60 * time.Second

// ScheduledJobsScaler scales on a fraction of the near-term scheduled
// job backlog. It carries its own local circuit breaker: on a query
// failure it remembers the failure time and returns a zero estimate
// (clamped, so min_instances) for every call
// within the next 60 seconds without touching the database again, so a
// stalled connection doesn't retry every tick.
type ScheduledJobsScaler struct {
	appName  string
	db       backlogSource
	clock    clock.Clock
	min, max int

	threshold float64
	factor    float64
	lookahead string

	mu          sync.Mutex
	lastDBError time.Time
}

func NewScheduledJobsScaler(appName string, db backlogSource, clk clock.Clock, min, max int, threshold, factor float64) (*ScheduledJobsScaler, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: scheduled jobs scaler requires threshold > 0", ErrNotConfigured)
	}
	if factor <= 0 {
		factor = 0.3
	}
	return &ScheduledJobsScaler{
		appName:   appName,
		db:        db,
		clock:     clk,
		min:       min,
		max:       max,
		threshold: threshold,
		factor:    factor,
		lookahead: "1 minute",
	}, nil
}

func (s *ScheduledJobsScaler) Name() string { return "scheduled_jobs:" + s.appName }

func (s *ScheduledJobsScaler) GetDesiredInstanceCount(ctx context.Context) (int, error) {
	if s.breakerOpen() {
		return clamp(0, s.min, s.max), nil
	}

	backlog, err := s.db.ScheduledJobsBacklog(ctx, s.lookahead)
	if err != nil {
		s.recordFailure()
		return clamp(0, s.min, s.max), nil
	}

	scaledItems := float64(backlog) * s.factor
	raw := ceilDiv(scaledItems, s.threshold)
	return clamp(raw, s.min, s.max), nil
}

func (s *ScheduledJobsScaler) breakerOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastDBError.IsZero() {
		return false
	}
	return s.clock.Now().Before(s.lastDBError.Add(scheduledJobsBreakerCooldown))
}

func (s *ScheduledJobsScaler) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDBError = s.clock.Now()
}
