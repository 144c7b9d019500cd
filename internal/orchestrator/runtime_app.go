// Package orchestrator ties the signal scalers, the decision engine
// and the PaaS collaborator into the per-tick control loop: snapshot
// every app's current state, compute each app's desired instance
// count, and hand the (current, desired) pair to the decision engine.
package orchestrator

import (
	"context"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/events"
	"github.com/OldStager01/paas-autoscaler/internal/logger"
	"github.com/OldStager01/paas-autoscaler/internal/scaler"
	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

// runtimeApp pairs an app's static configuration with the live Scaler
// instances built from it, plus the most recent tick's outcome for the
// Observability API.
type runtimeApp struct {
	spec    models.AppSpec
	scalers []scaler.Scaler
	guid    string

	lastCurrent  int
	lastDesired  int
	lastDecision string
	lastTickAt   time.Time
}

func newRuntimeApp(spec models.AppSpec, scalers []scaler.Scaler) *runtimeApp {
	return &runtimeApp{spec: spec, scalers: scalers}
}

// desiredInstanceCount is the max across every scaler's (already
// clamped) opinion. A scaler whose signal source failed contributes
// min_instances (a zero estimate clamped to [min, max]) rather than
// aborting the whole app's tick.
func (a *runtimeApp) desiredInstanceCount(ctx context.Context, pub *events.Publisher) int {
	var desired int
	for i, sc := range a.scalers {
		count, err := sc.GetDesiredInstanceCount(ctx)
		if err != nil {
			logger.WithApp(a.spec.Name).Warnf("scaler %s unavailable: %v", sc.Name(), err)
			if pub != nil {
				pub.SignalFailure(a.spec.Name, sc.Name(), err)
			}
			count = a.spec.MinInstances
		}
		if i == 0 || count > desired {
			desired = count
		}
	}
	return desired
}

func (a *runtimeApp) snapshot() models.AppSnapshot {
	return models.AppSnapshot{
		Name:             a.spec.Name,
		MinInstances:     a.spec.MinInstances,
		MaxInstances:     a.spec.MaxInstances,
		CurrentInstances: a.lastCurrent,
		LastDesired:      a.lastDesired,
		LastDecision:     a.lastDecision,
		LastTickAt:       a.lastTickAt,
	}
}
