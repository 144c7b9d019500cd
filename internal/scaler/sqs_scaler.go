package scaler

import (
	"context"
	"fmt"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/clock"
	"github.com/OldStager01/paas-autoscaler/internal/metrics"
	"github.com/OldStager01/paas-autoscaler/pkg/clients/cloudwatch"
)

// queueDepthSource is the narrow message-queue collaborator SqsScaler
// depends on.
type queueDepthSource interface {
	GetQueueDepth(ctx context.Context, queueName string) (int, error)
}

// SqsScaler scales on two additive terms: queue backlog depth (summed
// across all configured queues) and peak send throughput, each
// compared against its own threshold. This adds a throughput term
// beyond plain backlog-only scaling, recorded as a deliberate
// enrichment in the design notes.
type SqsScaler struct {
	appName  string
	sqs      queueDepthSource
	cw       metricStatistics
	sink     metrics.Sink
	clock    clock.Clock
	min, max int

	queues               []string
	queuePrefix          string
	queueLengthThreshold float64
	throughputThreshold  float64
}

func NewSqsScaler(appName string, sqs queueDepthSource, cw metricStatistics, sink metrics.Sink, clk clock.Clock, min, max int, queues []string, queuePrefix string, queueLengthThreshold, throughputThreshold float64) (*SqsScaler, error) {
	if len(queues) == 0 {
		return nil, fmt.Errorf("%w: sqs scaler requires at least one queue", ErrNotConfigured)
	}
	if queueLengthThreshold <= 0 || throughputThreshold <= 0 {
		return nil, fmt.Errorf("%w: sqs scaler requires positive thresholds", ErrNotConfigured)
	}
	return &SqsScaler{
		appName:              appName,
		sqs:                  sqs,
		cw:                   cw,
		sink:                 sink,
		clock:                clk,
		min:                  min,
		max:                  max,
		queues:               queues,
		queuePrefix:          queuePrefix,
		queueLengthThreshold: queueLengthThreshold,
		throughputThreshold:  throughputThreshold,
	}, nil
}

func (s *SqsScaler) Name() string { return "sqs:" + s.queues[0] }

func (s *SqsScaler) GetDesiredInstanceCount(ctx context.Context) (int, error) {
	totalDepth, err := s.totalDepth(ctx)
	if err != nil {
		return 0, err
	}
	peakThroughput, err := s.peakThroughput(ctx)
	if err != nil {
		return 0, err
	}

	raw := ceilDiv(totalDepth, s.queueLengthThreshold) + ceilDiv(peakThroughput, s.throughputThreshold)
	return clamp(raw, s.min, s.max), nil
}

func (s *SqsScaler) totalDepth(ctx context.Context) (float64, error) {
	var total float64
	for _, name := range s.queues {
		qualified := s.queuePrefix + name
		depth, err := s.sqs.GetQueueDepth(ctx, qualified)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSignalSourceUnavailable, err)
		}
		s.sink.Gauge(qualified+".queue-length", float64(depth))
		total += float64(depth)
	}
	return total, nil
}

func (s *SqsScaler) peakThroughput(ctx context.Context) (float64, error) {
	now := s.clock.Now()
	var peak float64
	for _, name := range s.queues {
		qualified := s.queuePrefix + name
		points, err := s.cw.GetMetricStatistics(ctx, "AWS/SQS", "NumberOfMessagesSent", "QueueName", qualified, now.Add(-elbWindow), now, time.Minute, cloudwatch.StatMaximum)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSignalSourceUnavailable, err)
		}
		var queuePeak float64
		for _, p := range points {
			if p.Value > queuePeak {
				queuePeak = p.Value
			}
		}
		s.sink.Gauge(qualified+".queue-throughput", queuePeak)
		s.sink.Gauge(qualified+".throughput-tasks-pulled-from-queue", float64(ceilDiv(queuePeak, s.throughputThreshold)))
		if queuePeak > peak {
			peak = queuePeak
		}
	}
	return peak, nil
}
