package scaler

import (
	"context"
	"fmt"

	"github.com/OldStager01/paas-autoscaler/pkg/clients/paas"
)

// appStatsSource is the narrow PaaS collaborator CpuScaler depends on.
type appStatsSource interface {
	GetAppStats(ctx context.Context, guid string) (map[string]paas.InstanceStats, error)
}

// CpuScaler scales on the SUM (not average) of per-instance CPU usage
// percentage across all running instances. This preserves the
// original's summing behavior rather than normalizing to an average,
// so a fleet of N lightly-loaded instances scales the same as one
// fully-loaded instance would per-instance.
type CpuScaler struct {
	appName  string
	guid     string
	paas     appStatsSource
	min, max int

	thresholdPct float64
}

func NewCpuScaler(appName, guid string, client appStatsSource, min, max int, thresholdPct float64) (*CpuScaler, error) {
	if thresholdPct <= 0 {
		thresholdPct = 60
	}
	return &CpuScaler{
		appName:      appName,
		guid:         guid,
		paas:         client,
		min:          min,
		max:          max,
		thresholdPct: thresholdPct,
	}, nil
}

func (s *CpuScaler) Name() string { return "cpu:" + s.appName }

func (s *CpuScaler) GetDesiredInstanceCount(ctx context.Context) (int, error) {
	stats, err := s.paas.GetAppStats(ctx, s.guid)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSignalSourceUnavailable, err)
	}

	var totalPct float64
	for _, instance := range stats {
		totalPct += instance.CPUFraction * 100
	}

	raw := ceilDiv(totalPct, s.thresholdPct)
	return clamp(raw, s.min, s.max), nil
}
