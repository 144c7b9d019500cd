package scaler

import (
	"context"
	"fmt"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/clock"
	"github.com/OldStager01/paas-autoscaler/internal/metrics"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/cloudwatch"
)

// metricStatistics is the narrow slice of the cloudwatch client an
// ElbScaler and SqsScaler depend on, so tests can fake it without a
// real AWS client.
type metricStatistics interface {
	GetMetricStatistics(ctx context.Context, namespace, metricName, dimName, dimValue string, start, end time.Time, period time.Duration, stat cloudwatch.Stat) ([]cloudwatch.Datapoint, error)
}

const elbWindow = 5 * time.Minute

// ElbScaler scales on the peak request-count seen by a load balancer
// over the trailing window, with a surge-queue override: any nonzero
// surge-queue depth forces the desired count to max_instances,
// regardless of the request-count estimate.
type ElbScaler struct {
	appName  string
	cw       metricStatistics
	sink     metrics.Sink
	clock    clock.Clock
	min, max int

	elbName           string
	surgeQueueElbName string
	threshold         float64
}

func NewElbScaler(appName string, cw metricStatistics, sink metrics.Sink, clk clock.Clock, min, max int, elbName, surgeQueueElbName string, threshold float64) (*ElbScaler, error) {
	if elbName == "" {
		return nil, fmt.Errorf("%w: elb scaler requires elb_name", ErrNotConfigured)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: elb scaler requires threshold > 0", ErrNotConfigured)
	}
	if surgeQueueElbName == "" {
		surgeQueueElbName = elbName
	}
	return &ElbScaler{
		appName:           appName,
		cw:                cw,
		sink:              sink,
		clock:             clk,
		min:               min,
		max:               max,
		elbName:           elbName,
		surgeQueueElbName: surgeQueueElbName,
		threshold:         threshold,
	}, nil
}

func (s *ElbScaler) Name() string { return "elb:" + s.elbName }

func (s *ElbScaler) GetDesiredInstanceCount(ctx context.Context) (int, error) {
	surge, err := s.surgeQueueMax(ctx)
	if err != nil {
		return 0, err
	}
	s.sink.Gauge(s.appName+".surge-queue", surge)

	requests, err := s.requestCounts(ctx)
	if err != nil {
		return 0, err
	}
	highest := maxFloat(requests)
	s.sink.Gauge(s.appName+".request-count", highest)

	if surge > 0 {
		return clamp(s.max, s.min, s.max), nil
	}

	raw := ceilDiv(highest, s.threshold)
	return clamp(raw, s.min, s.max), nil
}

func (s *ElbScaler) requestCounts(ctx context.Context) ([]float64, error) {
	now := s.clock.Now()
	points, err := s.cw.GetMetricStatistics(ctx, "AWS/ELB", "RequestCount", "LoadBalancerName", s.elbName, now.Add(-elbWindow), now, time.Minute, cloudwatch.StatSum)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignalSourceUnavailable, err)
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values, nil
}

func (s *ElbScaler) surgeQueueMax(ctx context.Context) (float64, error) {
	now := s.clock.Now()
	points, err := s.cw.GetMetricStatistics(ctx, "AWS/ELB", "SurgeQueueLength", "LoadBalancerName", s.surgeQueueElbName, now.Add(-elbWindow), now, time.Minute, cloudwatch.StatMaximum)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSignalSourceUnavailable, err)
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return maxFloat(values), nil
}

// maxFloat returns the largest value in values, treating an empty
// series as [0] per the "empty metric series" convention every scaler
// shares.
func maxFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
