package scenarios

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/clock"
	"github.com/OldStager01/paas-autoscaler/internal/cooldown"
	"github.com/OldStager01/paas-autoscaler/internal/decision"
	"github.com/OldStager01/paas-autoscaler/internal/events"
	"github.com/OldStager01/paas-autoscaler/internal/metrics"
	"github.com/OldStager01/paas-autoscaler/internal/orchestrator"
	"github.com/OldStager01/paas-autoscaler/internal/scaler"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/cloudwatch"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/paas"
	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

// fakePaaS plays both roles the orchestrator needs from its PaaS
// collaborator: the app snapshot source (ListApps/Reset) and the scale
// RPC the decision engine issues (UpdateInstances).
type fakePaaS struct {
	mu        sync.Mutex
	apps      map[string]paas.AppInfo
	listErr   error
	rpcErr    error
	rpcCalls  []rpcCall
	resetCount int
}

type rpcCall struct {
	guid      string
	instances int
}

func (f *fakePaaS) ListApps(ctx context.Context, org, space string) (map[string]paas.AppInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.apps, nil
}

func (f *fakePaaS) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCount++
}

func (f *fakePaaS) UpdateInstances(ctx context.Context, guid string, instances int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rpcCalls = append(f.rpcCalls, rpcCall{guid: guid, instances: instances})
	return f.rpcErr
}

type fakeMetricStats struct {
	mu     sync.Mutex
	series map[string][]cloudwatch.Datapoint
}

func (f *fakeMetricStats) GetMetricStatistics(ctx context.Context, namespace, metricName, dimName, dimValue string, start, end time.Time, period time.Duration, stat cloudwatch.Stat) ([]cloudwatch.Datapoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.series[metricName], nil
}

// scenarioHarness wires one app through a real Orchestrator and
// decision.Engine, fed by fakes for the PaaS and CloudWatch
// collaborators, mirroring how cmd/autoscaler/main.go wires production.
type scenarioHarness struct {
	paas  *fakePaaS
	clock *clock.Mock
	store cooldown.Store
	bus   *events.EventBus
	orch  *orchestrator.Orchestrator
}

func newScenarioHarness(cooldownUp, cooldownDown time.Duration) *scenarioHarness {
	now := time.Now()
	h := &scenarioHarness{
		paas:  &fakePaaS{apps: make(map[string]paas.AppInfo)},
		clock: clock.NewMock(now),
		store: cooldown.NewMemory(),
		bus:   events.NewEventBus(10),
	}
	engine := decision.NewEngine(decision.Config{
		CooldownUp:   cooldownUp,
		CooldownDown: cooldownDown,
	}, h.store, h.clock, metrics.Noop{}, h.paas)
	h.orch = orchestrator.New(h.paas, "org", "space", engine, events.NewPublisher(h.bus))
	return h
}

func (h *scenarioHarness) registerApp(spec models.AppSpec, guid string, current int, scalers ...scaler.Scaler) {
	h.paas.apps[spec.Name] = paas.AppInfo{Name: spec.Name, GUID: guid, Instances: current}
	h.orch.RegisterApp(spec, guid, scalers)
}

func (h *scenarioHarness) tick(t *testing.T) {
	t.Helper()
	if err := h.orch.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
}

// S1 — Scale up on request volume.
func TestScenario_S1_ScaleUpOnRequestVolume(t *testing.T) {
	h := newScenarioHarness(300*time.Second, 60*time.Second)
	cw := &fakeMetricStats{series: map[string][]cloudwatch.Datapoint{
		"RequestCount":     pointsOf(1300, 1500, 1600, 1700, 1700),
		"SurgeQueueLength": pointsOf(0),
	}}
	elb, err := scaler.NewElbScaler("web", cw, metrics.Noop{}, h.clock, 5, 10, "web-elb", "", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec := models.AppSpec{Name: "web", MinInstances: 5, MaxInstances: 10}
	h.registerApp(spec, "guid-web", 5, elb)
	h.tick(t)

	if len(h.paas.rpcCalls) != 1 || h.paas.rpcCalls[0].instances != 6 {
		t.Errorf("expected one scale RPC to 6, got %+v", h.paas.rpcCalls)
	}
}

// S2 — Schedule override wins the max-over-scalers comparison.
func TestScenario_S2_ScheduleOverride(t *testing.T) {
	h := newScenarioHarness(300*time.Second, 60*time.Second)
	london, _ := time.LoadLocation("Europe/London")
	weekdayAfternoon := time.Date(2026, 7, 27, 13, 15, 0, 0, london) // a Monday
	h.clock.Set(weekdayAfternoon.UTC())

	cw := &fakeMetricStats{series: map[string][]cloudwatch.Datapoint{
		"RequestCount":     pointsOf(1700),
		"SurgeQueueLength": pointsOf(0),
	}}
	elb, err := scaler.NewElbScaler("web", cw, metrics.Noop{}, h.clock, 5, 10, "web-elb", "", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	schedule, err := scaler.NewScheduleScaler("web", h.clock, 5, 10, []string{"08:00-19:00"}, nil, 0.8, func() bool { return true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec := models.AppSpec{Name: "web", MinInstances: 5, MaxInstances: 10}
	h.registerApp(spec, "guid-web", 5, elb, schedule)
	h.tick(t)

	if len(h.paas.rpcCalls) != 1 || h.paas.rpcCalls[0].instances != 8 {
		t.Errorf("expected schedule scaler's 8 to win the max, got %+v", h.paas.rpcCalls)
	}
}

// S3 — Single-step-down.
func TestScenario_S3_SingleStepDown(t *testing.T) {
	h := newScenarioHarness(300*time.Second, 60*time.Second)
	h.store.Set(context.Background(), "worker", models.CooldownUp, h.clock.Now().Add(-325*time.Second))
	h.store.Set(context.Background(), "worker", models.CooldownDown, h.clock.Now().Add(-600*time.Second))

	cw := &fakeMetricStats{series: map[string][]cloudwatch.Datapoint{
		"RequestCount":     pointsOf(0),
		"SurgeQueueLength": pointsOf(0),
	}}
	elb, err := scaler.NewElbScaler("worker", cw, metrics.Noop{}, h.clock, 1, 10, "worker-elb", "", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec := models.AppSpec{Name: "worker", MinInstances: 1, MaxInstances: 10}
	h.registerApp(spec, "guid-worker", 4, elb)
	h.tick(t)

	if len(h.paas.rpcCalls) != 1 || h.paas.rpcCalls[0].instances != 3 {
		t.Errorf("expected single-step-down to 3, got %+v", h.paas.rpcCalls)
	}
}

// S4 — Suppress down after up.
func TestScenario_S4_SuppressDownAfterUp(t *testing.T) {
	h := newScenarioHarness(300*time.Second, 60*time.Second)
	h.store.Set(context.Background(), "worker", models.CooldownUp, h.clock.Now().Add(-100*time.Second))

	cw := &fakeMetricStats{series: map[string][]cloudwatch.Datapoint{
		"RequestCount":     pointsOf(0),
		"SurgeQueueLength": pointsOf(0),
	}}
	elb, err := scaler.NewElbScaler("worker", cw, metrics.Noop{}, h.clock, 1, 10, "worker-elb", "", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec := models.AppSpec{Name: "worker", MinInstances: 1, MaxInstances: 10}
	h.registerApp(spec, "guid-worker", 4, elb)
	h.tick(t)

	if len(h.paas.rpcCalls) != 0 {
		t.Errorf("expected scale-down to be suppressed, got %+v", h.paas.rpcCalls)
	}
}

// S5 — Deployment in flight: swallowed, no error propagates out of Tick.
func TestScenario_S5_DeploymentInFlight(t *testing.T) {
	h := newScenarioHarness(300*time.Second, 60*time.Second)
	h.paas.rpcErr = paas.ErrDeploymentInFlight

	cw := &fakeMetricStats{series: map[string][]cloudwatch.Datapoint{
		"RequestCount":     pointsOf(3000),
		"SurgeQueueLength": pointsOf(0),
	}}
	elb, err := scaler.NewElbScaler("worker", cw, metrics.Noop{}, h.clock, 1, 10, "worker-elb", "", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec := models.AppSpec{Name: "worker", MinInstances: 1, MaxInstances: 10}
	h.registerApp(spec, "guid-worker", 4, elb)
	h.tick(t)

	if len(h.paas.rpcCalls) != 1 {
		t.Errorf("expected the RPC to have been attempted despite the deferred deployment, got %+v", h.paas.rpcCalls)
	}
	upAt, ok, _ := h.store.Get(context.Background(), "worker", models.CooldownUp)
	if !ok || !upAt.Equal(h.clock.Now()) {
		t.Error("expected last_scale_up to advance even though the RPC was deferred")
	}
}

// S6 — Cold start missing cooldown.
func TestScenario_S6_ColdStartMissingCooldown(t *testing.T) {
	h := newScenarioHarness(300*time.Second, 60*time.Second)

	cw := &fakeMetricStats{series: map[string][]cloudwatch.Datapoint{
		"RequestCount":     pointsOf(0),
		"SurgeQueueLength": pointsOf(0),
	}}
	elb, err := scaler.NewElbScaler("worker", cw, metrics.Noop{}, h.clock, 1, 10, "worker-elb", "", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec := models.AppSpec{Name: "worker", MinInstances: 1, MaxInstances: 10}
	h.registerApp(spec, "guid-worker", 4, elb)
	h.tick(t)

	if len(h.paas.rpcCalls) != 0 {
		t.Errorf("expected cold-start tick to suppress scale-down, got %+v", h.paas.rpcCalls)
	}
	upAt, ok, _ := h.store.Get(context.Background(), "worker", models.CooldownUp)
	if !ok || !upAt.Equal(h.clock.Now()) {
		t.Error("expected last_scale_up to be seeded to now")
	}
	downAt, ok, _ := h.store.Get(context.Background(), "worker", models.CooldownDown)
	if !ok || !downAt.Equal(h.clock.Now()) {
		t.Error("expected last_scale_down to be seeded to now")
	}
}

// S7 — Surge queue forces max.
func TestScenario_S7_SurgeQueueForcesMax(t *testing.T) {
	h := newScenarioHarness(300*time.Second, 60*time.Second)
	cw := &fakeMetricStats{series: map[string][]cloudwatch.Datapoint{
		"RequestCount":     pointsOf(1800), // would otherwise estimate ceil(1800/300)=6
		"SurgeQueueLength": pointsOf(15),
	}}
	elb, err := scaler.NewElbScaler("web", cw, metrics.Noop{}, h.clock, 1, 10, "web-elb", "", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec := models.AppSpec{Name: "web", MinInstances: 1, MaxInstances: 10}
	h.registerApp(spec, "guid-web", 3, elb)
	h.tick(t)

	if len(h.paas.rpcCalls) != 1 || h.paas.rpcCalls[0].instances != 10 {
		t.Errorf("expected surge queue to force max (10), got %+v", h.paas.rpcCalls)
	}
}

// S8 — DB circuit breaker: a failure at t=0 makes t=30s return 0
// without querying, and t=70s attempts a fresh query.
func TestScenario_S8_DBCircuitBreaker(t *testing.T) {
	h := newScenarioHarness(300*time.Second, 60*time.Second)
	backlog := &fakeBacklog{err: context.DeadlineExceeded}
	jobsScaler, err := scaler.NewScheduledJobsScaler("batch", backlog, h.clock, 0, 10, 50, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec := models.AppSpec{Name: "batch", MinInstances: 0, MaxInstances: 10}
	h.registerApp(spec, "guid-batch", 2, jobsScaler)

	h.tick(t) // t=0: query fails, breaker opens
	if backlog.queries != 1 {
		t.Errorf("expected one query attempt at t=0, got %d", backlog.queries)
	}

	h.clock.Advance(30 * time.Second)
	h.tick(t) // t=30s: breaker still open, no query
	if backlog.queries != 1 {
		t.Errorf("expected breaker to suppress the query at t=30s, got %d queries", backlog.queries)
	}

	h.clock.Advance(40 * time.Second) // total 70s
	backlog.err = nil
	h.tick(t) // t=70s: breaker closed, fresh query attempted
	if backlog.queries != 2 {
		t.Errorf("expected a fresh query attempt at t=70s, got %d queries", backlog.queries)
	}
}

type fakeBacklog struct {
	mu      sync.Mutex
	count   int
	err     error
	queries int
}

func (f *fakeBacklog) ScheduledJobsBacklog(ctx context.Context, lookahead string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

func pointsOf(values ...float64) []cloudwatch.Datapoint {
	points := make([]cloudwatch.Datapoint, len(values))
	for i, v := range values {
		points[i] = cloudwatch.Datapoint{Value: v}
	}
	return points
}
