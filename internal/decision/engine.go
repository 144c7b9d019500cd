// Package decision implements the scale-change policy: given an app's
// current and desired instance counts, decide whether to scale, enforce
// cooldowns and the single-step-down rule, and issue the resulting PaaS
// scale RPC.
package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/clock"
	"github.com/OldStager01/paas-autoscaler/internal/cooldown"
	"github.com/OldStager01/paas-autoscaler/internal/logger"
	"github.com/OldStager01/paas-autoscaler/internal/metrics"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/paas"
	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

// ScaleRPC is the narrow slice of the PaaS collaborator the decision
// engine needs to issue a scale command. It is satisfied by
// *paas.Client in production and a fake in tests.
type ScaleRPC interface {
	UpdateInstances(ctx context.Context, guid string, instances int) error
}

// Config holds the two independent cooldown periods the scale policy
// enforces.
type Config struct {
	CooldownUp   time.Duration
	CooldownDown time.Duration
}

func (c Config) withDefaults() Config {
	if c.CooldownUp <= 0 {
		c.CooldownUp = 5 * time.Minute
	}
	if c.CooldownDown <= 0 {
		c.CooldownDown = 5 * time.Minute
	}
	return c
}

// Engine implements the per-app scale policy: cooldown-gated scale-down,
// single-step-down, and missing-cooldown-treated-as-now semantics.
type Engine struct {
	config Config
	store  cooldown.Store
	clock  clock.Clock
	sink   metrics.Sink
	rpc    ScaleRPC
}

func NewEngine(cfg Config, store cooldown.Store, clk clock.Clock, sink metrics.Sink, rpc ScaleRPC) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &Engine{
		config: cfg.withDefaults(),
		store:  store,
		clock:  clk,
		sink:   sink,
		rpc:    rpc,
	}
}

// Result reports what Decide actually did, so the orchestrator can
// publish events and update an app's last-decision state without
// re-deriving the policy.
type Result struct {
	NewCount   int
	Applied    bool // the PaaS scale RPC was invoked
	Succeeded  bool // the RPC succeeded, or no RPC was needed
	SkipReason string
}

// Decide runs one app's tick through the scale policy: compare desired
// against current, consult cooldowns, apply the single-step-down rule,
// and invoke the PaaS scale RPC when a change is warranted. Conditions
// the policy itself handles — cooldown suppression, deployment in
// flight, other PaaS failures — are logged and swallowed, never
// propagated, so a single app's trouble cannot stall the scheduler. A
// non-nil error means the CooldownStore itself is unusable and the
// caller should treat the tick as failed for this app.
func (e *Engine) Decide(ctx context.Context, appName, guid string, current, desired int) (Result, error) {
	gaugeName := appName + ".instance-count"

	if desired == current {
		e.sink.Gauge(gaugeName, float64(current))
		return Result{NewCount: current, Succeeded: true}, nil
	}

	now := e.clock.Now()

	if desired > current {
		if err := e.store.Set(ctx, appName, models.CooldownUp, now); err != nil {
			logger.WithApp(appName).Warnf("cooldown: failed to record scale-up: %v", err)
		}
		return e.apply(ctx, appName, guid, current, desired, gaugeName), nil
	}

	// Scale-down path. Ensure both cooldown kinds have a record before
	// checking either, so a cold-start tick with no prior history for
	// this app sets last_scale_up and last_scale_down to now within the
	// same tick rather than just the kind examined first.
	lastUp, err := e.ensureRecord(ctx, appName, models.CooldownUp, now)
	if err != nil {
		return Result{}, err
	}
	lastDown, err := e.ensureRecord(ctx, appName, models.CooldownDown, now)
	if err != nil {
		return Result{}, err
	}

	if now.Before(lastUp.Add(e.config.CooldownUp)) {
		logger.WithApp(appName).Info("skipping scale down: recent scale-up event")
		e.sink.Gauge(gaugeName, float64(current))
		return Result{NewCount: current, Succeeded: true, SkipReason: "recent scale-up"}, nil
	}
	if now.Before(lastDown.Add(e.config.CooldownDown)) {
		logger.WithApp(appName).Info("skipping scale down: recent scale-down event")
		e.sink.Gauge(gaugeName, float64(current))
		return Result{NewCount: current, Succeeded: true, SkipReason: "recent scale-down"}, nil
	}

	if err := e.store.Set(ctx, appName, models.CooldownDown, now); err != nil {
		logger.WithApp(appName).Warnf("cooldown: failed to record scale-down: %v", err)
	}
	// Single-step-down: never remove more than one instance per tick,
	// regardless of how far below current the desired count is.
	newCount := current - 1
	return e.apply(ctx, appName, guid, current, newCount, gaugeName), nil
}

func (e *Engine) ensureRecord(ctx context.Context, appName string, kind models.CooldownKind, now time.Time) (time.Time, error) {
	t, ok, err := e.store.Get(ctx, appName, kind)
	if err != nil {
		return time.Time{}, fmt.Errorf("decision: cooldown lookup for %s/%s: %w", appName, kind, err)
	}
	if ok {
		return t, nil
	}
	if err := e.store.Set(ctx, appName, kind, now); err != nil {
		logger.WithApp(appName).Warnf("cooldown: failed to seed missing %s record: %v", kind, err)
	}
	return now, nil
}

func (e *Engine) apply(ctx context.Context, appName, guid string, current, newCount int, gaugeName string) Result {
	if newCount == current {
		e.sink.Gauge(gaugeName, float64(newCount))
		return Result{NewCount: newCount, Succeeded: true}
	}

	logger.WithApp(appName).Infof("scaling %s from %d to %d", appName, current, newCount)

	err := e.rpc.UpdateInstances(ctx, guid, newCount)
	result := Result{NewCount: newCount, Applied: true}
	switch {
	case err == nil:
		result.Succeeded = true
	case errors.Is(err, paas.ErrDeploymentInFlight):
		logger.WithApp(appName).Infof("scale RPC deferred, deployment in flight for %s", appName)
		result.SkipReason = "deployment in flight"
	default:
		logger.WithApp(appName).Errorf("scale RPC failed for %s: %v", appName, err)
	}

	e.sink.Gauge(gaugeName, float64(newCount))
	return result
}
