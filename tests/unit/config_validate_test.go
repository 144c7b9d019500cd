package unit

import (
	"testing"

	"github.com/OldStager01/paas-autoscaler/pkg/config"
	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

func baseValidConfig() *config.Config {
	return &config.Config{
		General: config.GeneralConfig{
			CFOrg:    "my-org",
			CFSpace:  "my-space",
			CFAPIURL: "https://api.example.com",
		},
		Apps: []models.AppSpec{
			{
				Name:         "web-frontend",
				MinInstances: 1,
				MaxInstances: 10,
				Scalers: []models.ScalerSpec{
					{Type: models.ScalerTypeELB, ElbName: "web-elb", Threshold: 100},
				},
			},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := baseValidConfig().Validate(); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}
}

func TestValidate_MissingOrgOrSpace(t *testing.T) {
	cfg := baseValidConfig()
	cfg.General.CFOrg = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when cf_org is missing")
	}
}

func TestValidate_MissingAPIURL(t *testing.T) {
	cfg := baseValidConfig()
	cfg.General.CFAPIURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when cf_api_url is missing")
	}
}

func TestValidate_NoApps(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Apps = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when no apps are configured")
	}
}

func TestValidate_DuplicateAppName(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Apps = append(cfg.Apps, cfg.Apps[0])
	if err := cfg.Validate(); err == nil {
		t.Error("expected error on duplicate app name")
	}
}

func TestValidate_InvalidAppName(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Apps[0].Name = "x"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error on app name shorter than 3 characters")
	}
}

func TestValidate_MaxLessThanMin(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Apps[0].MinInstances = 5
	cfg.Apps[0].MaxInstances = 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when max_instances < min_instances")
	}
}

func TestValidate_NoScalers(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Apps[0].Scalers = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when an app has no scalers")
	}
}

func TestValidate_ElbScalerRequiresName(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Apps[0].Scalers[0].ElbName = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when elb scaler is missing elb_name")
	}
}

func TestValidate_SqsScalerRequiresQueuesAndThresholds(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Apps[0].Scalers = []models.ScalerSpec{{Type: models.ScalerTypeSQS}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when sqs scaler is missing queues")
	}

	cfg.Apps[0].Scalers[0].Queues = []string{"jobs"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when sqs scaler is missing positive thresholds")
	}
}

func TestValidate_CpuScalerHasNoRequiredFields(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Apps[0].Scalers = []models.ScalerSpec{{Type: models.ScalerTypeCPU}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected cpu scaler to validate with no fields set, got: %v", err)
	}
}

func TestValidate_ScheduledJobsScalerRequiresThreshold(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Apps[0].Scalers = []models.ScalerSpec{{Type: models.ScalerTypeScheduledJobs}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when scheduled_jobs scaler is missing threshold")
	}
}

func TestValidate_ScheduleScalerRequiresWindows(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Apps[0].Scalers = []models.ScalerSpec{{Type: models.ScalerTypeSchedule}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when schedule scaler has neither workdays nor weekends")
	}
}

func TestValidate_UnrecognizedScalerType(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Apps[0].Scalers = []models.ScalerSpec{{Type: models.ScalerType("bogus")}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error on unrecognized scaler type")
	}
}
