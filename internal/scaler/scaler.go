// Package scaler implements the signal-based desired-instance-count
// estimators an App composes: ElbScaler, SqsScaler, CpuScaler,
// ScheduledJobsScaler and ScheduleScaler. Each one answers a single
// question — "how many instances does this one signal think we need
// right now?" — and the orchestrator's runtimeApp.desiredInstanceCount takes the max across all of
// an app's scalers.
package scaler

import (
	"context"
	"errors"
)

var (
	// ErrSignalSourceUnavailable is returned by a scaler when its
	// upstream collaborator (cloud metrics, queue, SQL store) could not
	// be reached. The orchestrator logs it, publishes a signal failure
	// and counts that scaler as min_instances; the app's tick continues.
	ErrSignalSourceUnavailable = errors.New("scaler: signal source unavailable")

	// ErrNotConfigured indicates a scaler was constructed without a
	// required field and cannot run. This is a ConfigLoadError
	// surfaced at startup, not a runtime condition.
	ErrNotConfigured = errors.New("scaler: missing required configuration")
)

// Scaler is the contract every concrete signal-based scaler satisfies.
// GetDesiredInstanceCount returns this scaler's opinion of the
// instance count the app should run, already clamped to [min, max].
type Scaler interface {
	// GetDesiredInstanceCount computes the instance count this scaler's
	// signal implies for the given tick. Implementations must clamp
	// their raw result to [min, max] before returning it: App never
	// re-clamps a scaler's output.
	GetDesiredInstanceCount(ctx context.Context) (int, error)

	// Name identifies the scaler for logging and metrics, e.g.
	// "elb:web-frontend" or "cpu:worker".
	Name() string
}

// clamp applies the normalize-desired-instance-count policy used by
// every scaler: clamp to max first, then to min, so that a
// min_instances greater than max_instances still yields min_instances
// (matching base_scalers.py's clamp order).
func clamp(desired, min, max int) int {
	if desired > max {
		desired = max
	}
	if desired < min {
		desired = min
	}
	return desired
}

// ceilDiv performs integer ceiling division, used throughout the
// scalers wherever the original computes ceil(x / y).
func ceilDiv(numerator, denominator float64) int {
	if denominator <= 0 {
		return 0
	}
	q := numerator / denominator
	n := int(q)
	if float64(n) < q {
		n++
	}
	if n < 0 {
		n = 0
	}
	return n
}
