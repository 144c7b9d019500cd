package scaler

import (
	"fmt"

	"github.com/OldStager01/paas-autoscaler/internal/clock"
	"github.com/OldStager01/paas-autoscaler/internal/metrics"
	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

// Dependencies bundles every collaborator a ScalerSpec might need. Not
// every scaler type uses every field; Build only touches the ones its
// spec.Type requires.
type Dependencies struct {
	Clock clock.Clock
	Sink  metrics.Sink

	CloudWatch  metricStatistics
	Queues      queueDepthSource
	AppStats    appStatsSource
	JobsBacklog backlogSource

	QueuePrefix           string
	ScheduleScalerEnabled func() bool

	AppGUID string
}

// Build constructs the concrete Scaler a ScalerSpec describes.
func Build(appName string, min, max int, spec models.ScalerSpec, deps Dependencies) (Scaler, error) {
	switch spec.Type {
	case models.ScalerTypeELB:
		return NewElbScaler(appName, deps.CloudWatch, deps.Sink, deps.Clock, min, max, spec.ElbName, spec.SurgeQueueElbName, spec.Threshold)

	case models.ScalerTypeSQS:
		return NewSqsScaler(appName, deps.Queues, deps.CloudWatch, deps.Sink, deps.Clock, min, max, spec.Queues, deps.QueuePrefix, spec.QueueLengthThreshold, spec.ThroughputThreshold)

	case models.ScalerTypeCPU:
		return NewCpuScaler(appName, deps.AppGUID, deps.AppStats, min, max, spec.ThresholdPct)

	case models.ScalerTypeScheduledJobs:
		return NewScheduledJobsScaler(appName, deps.JobsBacklog, deps.Clock, min, max, spec.Threshold, spec.ScheduledItemsFactor)

	case models.ScalerTypeSchedule:
		return NewScheduleScaler(appName, deps.Clock, min, max, spec.ScheduleWorkdays, spec.ScheduleWeekends, spec.ScaleFactor, deps.ScheduleScalerEnabled)

	default:
		return nil, fmt.Errorf("%w: unknown scaler type %q", ErrNotConfigured, spec.Type)
	}
}
