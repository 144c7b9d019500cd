package config

import (
	"errors"
	"fmt"

	"github.com/OldStager01/paas-autoscaler/pkg/models"
	"github.com/OldStager01/paas-autoscaler/pkg/validation"
)

// Validate rejects any configuration that would produce undefined
// scaling behavior. Every condition here is a ConfigLoadError: the
// process must not start the scheduler against a config it can't
// fully make sense of.
func (c *Config) Validate() error {
	if c.General.CFOrg == "" || c.General.CFSpace == "" {
		return errors.New("config: general.cf_org and general.cf_space are required")
	}
	if c.General.CFAPIURL == "" {
		return errors.New("config: general.cf_api_url is required")
	}
	if len(c.Apps) == 0 {
		return errors.New("config: at least one app must be configured")
	}

	seen := make(map[string]bool, len(c.Apps))
	for _, app := range c.Apps {
		if err := validateApp(app); err != nil {
			return err
		}
		if seen[app.Name] {
			return fmt.Errorf("config: duplicate app name %q", app.Name)
		}
		seen[app.Name] = true
	}

	return nil
}

func validateApp(app models.AppSpec) error {
	if err := validation.ValidateAppName(app.Name); err != nil {
		return fmt.Errorf("config: app %q: %w", app.Name, err)
	}
	if err := validation.ValidateInstanceCount(app.MinInstances, app.MaxInstances); err != nil {
		return fmt.Errorf("config: app %q: %w", app.Name, err)
	}
	if len(app.Scalers) == 0 {
		return fmt.Errorf("config: app %q: at least one scaler is required", app.Name)
	}
	for _, spec := range app.Scalers {
		if err := validateScaler(app.Name, spec); err != nil {
			return err
		}
	}
	return nil
}

func validateScaler(appName string, spec models.ScalerSpec) error {
	switch spec.Type {
	case models.ScalerTypeELB:
		if spec.ElbName == "" {
			return fmt.Errorf("config: app %q: elb scaler requires elb_name", appName)
		}
		if spec.Threshold <= 0 {
			return fmt.Errorf("config: app %q: elb scaler requires threshold > 0", appName)
		}
	case models.ScalerTypeSQS:
		if len(spec.Queues) == 0 {
			return fmt.Errorf("config: app %q: sqs scaler requires at least one queue", appName)
		}
		if spec.QueueLengthThreshold <= 0 || spec.ThroughputThreshold <= 0 {
			return fmt.Errorf("config: app %q: sqs scaler requires positive thresholds", appName)
		}
	case models.ScalerTypeCPU:
		// threshold_pct defaults to 60 if unset; nothing else is required.
	case models.ScalerTypeScheduledJobs:
		if spec.Threshold <= 0 {
			return fmt.Errorf("config: app %q: scheduled_jobs scaler requires threshold > 0", appName)
		}
	case models.ScalerTypeSchedule:
		if len(spec.ScheduleWorkdays) == 0 && len(spec.ScheduleWeekends) == 0 {
			return fmt.Errorf("config: app %q: schedule scaler requires workdays or weekends", appName)
		}
	default:
		return fmt.Errorf("config: app %q: unrecognized scaler type %q", appName, spec.Type)
	}
	return nil
}
