// Package cooldown implements the CooldownStore collaborator: durable
// per-app last-scale-up/last-scale-down timestamps the decision engine
// consults before allowing a scale-down. The state model is
// deliberately trivial — a map of (kind, app) to a UTC timestamp — so
// the store is swappable between an in-memory implementation (tests,
// single-process deployments without Redis) and a Redis-backed one
// (production, survives restarts).
package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

// Store is the narrow persistence contract the decision engine uses.
// Get returns (timestamp, false) when no record exists for the
// (appName, kind) pair — that "missing record" case is meaningful to
// callers, not an error.
type Store interface {
	Get(ctx context.Context, appName string, kind models.CooldownKind) (time.Time, bool, error)
	Set(ctx context.Context, appName string, kind models.CooldownKind, at time.Time) error
}

// Memory is an in-process Store, the default for tests and for
// deployments that accept losing cooldown history across restarts.
type Memory struct {
	mu      sync.RWMutex
	records map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]time.Time)}
}

func key(appName string, kind models.CooldownKind) string {
	return string(kind) + "|" + appName
}

func (m *Memory) Get(_ context.Context, appName string, kind models.CooldownKind) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.records[key(appName, kind)]
	return t, ok, nil
}

func (m *Memory) Set(_ context.Context, appName string, kind models.CooldownKind, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key(appName, kind)] = at
	return nil
}
