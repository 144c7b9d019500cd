package models

import "time"

// ScalerType identifies which concrete Scaler implementation a ScalerSpec
// configures.
type ScalerType string

const (
	ScalerTypeELB            ScalerType = "elb"
	ScalerTypeSQS             ScalerType = "sqs"
	ScalerTypeCPU             ScalerType = "cpu"
	ScalerTypeScheduledJobs   ScalerType = "scheduled_jobs"
	ScalerTypeSchedule        ScalerType = "schedule"
)

// ScalerSpec is the declarative configuration for one scaler attached to
// an App. Only the fields relevant to Type are populated; the rest are
// zero. ScalerSpec is unmarshaled directly from the APPS.<app>.scalers
// YAML list.
type ScalerSpec struct {
	Type ScalerType `mapstructure:"type"`

	// ELB
	ElbName           string  `mapstructure:"elb_name"`
	SurgeQueueElbName string  `mapstructure:"surge_queue_elb_name"`
	Threshold         float64 `mapstructure:"threshold"`

	// SQS
	Queues               []string `mapstructure:"queues"`
	QueueLengthThreshold float64  `mapstructure:"queue_length_threshold"`
	ThroughputThreshold  float64  `mapstructure:"throughput_threshold"`

	// CPU
	ThresholdPct float64 `mapstructure:"threshold_pct"`

	// ScheduledJobs
	ScheduledItemsFactor float64 `mapstructure:"factor"`

	// Schedule
	ScaleFactor      float64  `mapstructure:"scale_factor"`
	ScheduleWorkdays []string `mapstructure:"workdays"`
	ScheduleWeekends []string `mapstructure:"weekends"`
}

// AppSpec is one entry under the APPS config key: the static shape of an
// application the control loop manages.
type AppSpec struct {
	Name         string       `mapstructure:"name"`
	MinInstances int          `mapstructure:"min_instances"`
	MaxInstances int          `mapstructure:"max_instances"`
	Scalers      []ScalerSpec `mapstructure:"scalers"`
}

// Observed is the transient, per-tick snapshot an App carries between
// "read current state from the PaaS" and "decide/apply". It is never
// persisted. The orchestrator reads these values straight from the
// PaaS snapshot and does not build an Observed.
type Observed struct {
	CurrentInstances int
	DeploymentInFlight bool
	ObservedAt       time.Time
}

// AppSnapshot is the read-only projection of an App's last tick exposed
// over the Observability API. It carries no behavior and no scaler
// handles, only what happened.
type AppSnapshot struct {
	Name             string    `json:"name"`
	MinInstances     int       `json:"min_instances"`
	MaxInstances     int       `json:"max_instances"`
	CurrentInstances int       `json:"current_instances"`
	LastDesired      int       `json:"last_desired"`
	LastDecision     string    `json:"last_decision"`
	LastTickAt       time.Time `json:"last_tick_at"`
}
