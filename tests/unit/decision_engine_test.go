package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/clock"
	"github.com/OldStager01/paas-autoscaler/internal/cooldown"
	"github.com/OldStager01/paas-autoscaler/internal/decision"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/paas"
	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

type fakeRPC struct {
	calls []int
	err   error
}

func (f *fakeRPC) UpdateInstances(ctx context.Context, guid string, instances int) error {
	f.calls = append(f.calls, instances)
	return f.err
}

func newTestEngine(store cooldown.Store, clk clock.Clock, rpc decision.ScaleRPC) *decision.Engine {
	return decision.NewEngine(decision.Config{
		CooldownUp:   300 * time.Second,
		CooldownDown: 60 * time.Second,
	}, store, clk, nil, rpc)
}

func TestEngine_Decide_NoChange(t *testing.T) {
	rpc := &fakeRPC{}
	engine := newTestEngine(cooldown.NewMemory(), clock.NewMock(time.Now()), rpc)

	result, err := engine.Decide(context.Background(), "app-a", "guid-a", 4, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Applied {
		t.Error("expected no RPC when desired equals current")
	}
	if len(rpc.calls) != 0 {
		t.Errorf("expected no RPC calls, got %v", rpc.calls)
	}
}

// S3 — Single-step-down.
func TestEngine_Decide_SingleStepDown(t *testing.T) {
	now := time.Now()
	store := cooldown.NewMemory()
	store.Set(context.Background(), "app-a", models.CooldownUp, now.Add(-325*time.Second))
	store.Set(context.Background(), "app-a", models.CooldownDown, now.Add(-600*time.Second))

	rpc := &fakeRPC{}
	engine := newTestEngine(store, clock.NewMock(now), rpc)

	result, err := engine.Decide(context.Background(), "app-a", "guid-a", 4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewCount != 3 {
		t.Errorf("expected single-step-down to 3, got %d", result.NewCount)
	}
	if len(rpc.calls) != 1 || rpc.calls[0] != 3 {
		t.Errorf("expected one RPC call with 3, got %v", rpc.calls)
	}
}

// S4 — Suppress down after up.
func TestEngine_Decide_SuppressDownAfterUp(t *testing.T) {
	now := time.Now()
	store := cooldown.NewMemory()
	store.Set(context.Background(), "app-a", models.CooldownUp, now.Add(-100*time.Second))

	rpc := &fakeRPC{}
	engine := newTestEngine(store, clock.NewMock(now), rpc)

	result, err := engine.Decide(context.Background(), "app-a", "guid-a", 4, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Applied {
		t.Error("expected scale-down to be suppressed by recent scale-up")
	}
	if result.SkipReason == "" {
		t.Error("expected a skip reason")
	}
	if len(rpc.calls) != 0 {
		t.Errorf("expected no RPC calls, got %v", rpc.calls)
	}
}

// S5 — Deployment in flight: swallowed, last_scale_up still advances.
func TestEngine_Decide_DeploymentInFlight(t *testing.T) {
	now := time.Now()
	store := cooldown.NewMemory()
	rpc := &fakeRPC{err: paas.ErrDeploymentInFlight}
	engine := newTestEngine(store, clock.NewMock(now), rpc)

	result, err := engine.Decide(context.Background(), "app-a", "guid-a", 4, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Applied {
		t.Error("expected the scale RPC to have been attempted")
	}
	if result.Succeeded {
		t.Error("expected Succeeded to be false when deployment is in flight")
	}

	upAt, ok, _ := store.Get(context.Background(), "app-a", models.CooldownUp)
	if !ok || !upAt.Equal(now) {
		t.Error("expected last_scale_up to be recorded even though the RPC was deferred")
	}
}

// S6 — Cold start: both cooldowns missing, scale-down suppressed and
// both records seeded to now within the same tick.
func TestEngine_Decide_ColdStartMissingCooldown(t *testing.T) {
	now := time.Now()
	store := cooldown.NewMemory()
	rpc := &fakeRPC{}
	engine := newTestEngine(store, clock.NewMock(now), rpc)

	result, err := engine.Decide(context.Background(), "app-a", "guid-a", 4, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Applied {
		t.Error("expected scale-down to be suppressed on cold start")
	}
	if result.NewCount != 4 {
		t.Errorf("expected gauge/current to remain 4, got %d", result.NewCount)
	}

	upAt, ok, _ := store.Get(context.Background(), "app-a", models.CooldownUp)
	if !ok || !upAt.Equal(now) {
		t.Error("expected last_scale_up to be seeded to now")
	}
	downAt, ok, _ := store.Get(context.Background(), "app-a", models.CooldownDown)
	if !ok || !downAt.Equal(now) {
		t.Error("expected last_scale_down to be seeded to now")
	}
}

func TestEngine_Decide_ScaleUpNoCooldownCheck(t *testing.T) {
	now := time.Now()
	store := cooldown.NewMemory()
	store.Set(context.Background(), "app-a", models.CooldownDown, now.Add(-1*time.Second))

	rpc := &fakeRPC{}
	engine := newTestEngine(store, clock.NewMock(now), rpc)

	result, err := engine.Decide(context.Background(), "app-a", "guid-a", 5, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Applied || result.NewCount != 6 {
		t.Errorf("expected scale up to 6 unconditionally, got %+v", result)
	}
}

type erroringStore struct{}

func (erroringStore) Get(context.Context, string, models.CooldownKind) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("store unavailable")
}
func (erroringStore) Set(context.Context, string, models.CooldownKind, time.Time) error {
	return errors.New("store unavailable")
}

func TestEngine_Decide_CooldownStoreFailurePropagates(t *testing.T) {
	engine := newTestEngine(erroringStore{}, clock.NewMock(time.Now()), &fakeRPC{})

	_, err := engine.Decide(context.Background(), "app-a", "guid-a", 4, 3)
	if err == nil {
		t.Fatal("expected a CooldownStore failure to be returned as an error")
	}
}
