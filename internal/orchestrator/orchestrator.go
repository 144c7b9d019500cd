package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/decision"
	"github.com/OldStager01/paas-autoscaler/internal/events"
	"github.com/OldStager01/paas-autoscaler/internal/logger"
	"github.com/OldStager01/paas-autoscaler/internal/scaler"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/paas"
	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

// authBackoff is how long the control loop waits after an
// authentication failure before trying the PaaS API again, to avoid
// tripping an account lockout from repeated failed logins.
const authBackoff = 5 * time.Minute

// paasClient is the narrow PaaS collaborator the orchestrator depends
// on; satisfied by *paas.Client in production.
type paasClient interface {
	ListApps(ctx context.Context, org, space string) (map[string]paas.AppInfo, error)
	Reset()
}

// Orchestrator runs one tick of the control loop: snapshot every
// configured app's current state from the PaaS, compute each app's
// desired instance count, and hand the result to the decision engine.
// It is single-threaded by design — one tick completes fully before
// the next begins — matching the scheduler's absolute-deadline,
// non-overlapping contract.
type Orchestrator struct {
	paas   paasClient
	org    string
	space  string
	engine *decision.Engine
	pub    *events.Publisher

	mu               sync.RWMutex
	apps             []*runtimeApp
	authBackoffUntil time.Time
}

func New(client paasClient, org, space string, engine *decision.Engine, pub *events.Publisher) *Orchestrator {
	return &Orchestrator{
		paas:   client,
		org:    org,
		space:  space,
		engine: engine,
		pub:    pub,
	}
}

// RegisterApp adds an app to the set the orchestrator ticks every
// cycle. Apps must be registered before the first Tick.
func (o *Orchestrator) RegisterApp(spec models.AppSpec, guid string, scalers []scaler.Scaler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	app := newRuntimeApp(spec, scalers)
	app.guid = guid
	o.apps = append(o.apps, app)
}

// Tick runs one full cycle: fetch the PaaS snapshot, then evaluate and
// decide for every registered app. Errors from individual apps never
// abort the tick; only a PaaS-wide failure (auth, transport) does.
func (o *Orchestrator) Tick(ctx context.Context) error {
	o.mu.Lock()
	if time.Now().Before(o.authBackoffUntil) {
		o.mu.Unlock()
		logger.Debug("skipping tick: in auth backoff window")
		return nil
	}
	o.mu.Unlock()

	start := time.Now()

	snapshot, err := o.paas.ListApps(ctx, o.org, o.space)
	if err != nil {
		return o.handleSnapshotError(err)
	}

	o.mu.RLock()
	apps := make([]*runtimeApp, len(o.apps))
	copy(apps, o.apps)
	o.mu.RUnlock()

	for _, app := range apps {
		o.tickApp(ctx, app, snapshot)
	}

	o.pub.TickCompleted(len(apps), time.Since(start).String())
	return nil
}

func (o *Orchestrator) handleSnapshotError(err error) error {
	if errors.Is(err, paas.ErrAuthFailure) {
		logger.Error("paas authentication failed, backing off")
		o.pub.AuthFailure(err)
		o.paas.Reset()
		o.mu.Lock()
		o.authBackoffUntil = time.Now().Add(authBackoff)
		o.mu.Unlock()
		return nil
	}
	logger.Errorf("paas snapshot failed: %v", err)
	o.pub.Error("", "failed to fetch paas snapshot", err)
	o.paas.Reset()
	return nil
}

func (o *Orchestrator) tickApp(ctx context.Context, app *runtimeApp, snapshot map[string]paas.AppInfo) {
	info, ok := snapshot[app.spec.Name]
	if !ok {
		logger.WithApp(app.spec.Name).Warn("app not found in paas snapshot, skipping tick")
		return
	}

	desired := app.desiredInstanceCount(ctx, o.pub)
	result, err := o.engine.Decide(ctx, app.spec.Name, app.guid, info.Instances, desired)
	if err != nil {
		logger.WithApp(app.spec.Name).Errorf("decision failed: %v", err)
		o.pub.Error(app.spec.Name, "decision engine failure", err)
		return
	}

	o.mu.Lock()
	app.lastCurrent = info.Instances
	app.lastDesired = desired
	app.lastTickAt = time.Now()
	if result.SkipReason != "" {
		app.lastDecision = "skipped: " + result.SkipReason
	} else if result.Applied {
		app.lastDecision = "scaled"
	} else {
		app.lastDecision = "no change"
	}
	o.mu.Unlock()

	if result.SkipReason != "" {
		o.pub.ScaleSkipped(app.spec.Name, result.SkipReason, info.Instances)
		return
	}
	if result.Applied {
		o.pub.ScaleApplied(&models.ScaleEvent{
			AppName:   app.spec.Name,
			From:      info.Instances,
			To:        result.NewCount,
			Reason:    "desired instance count changed",
			Succeeded: result.Succeeded,
			Timestamp: time.Now(),
		})
	}
}

// Snapshots returns the last-tick state of every registered app, for
// the Observability API.
func (o *Orchestrator) Snapshots() []models.AppSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]models.AppSnapshot, len(o.apps))
	for i, app := range o.apps {
		out[i] = app.snapshot()
	}
	return out
}
