// Package config loads the control loop's configuration: a YAML file
// describing GENERAL/SCALERS/APPS, overlaid with a handful of
// un-prefixed environment variables that carry credentials and
// deployment-specific endpoints the YAML file is not expected to hold.
package config

import (
	"time"

	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

// GeneralConfig is the GENERAL block: scheduler cadence, cooldowns, and
// the PaaS org/space this process manages.
type GeneralConfig struct {
	ScheduleIntervalSeconds          int    `mapstructure:"schedule_interval_seconds"`
	CooldownSecondsAfterScaleUp      int    `mapstructure:"cooldown_seconds_after_scale_up"`
	CooldownSecondsAfterScaleDown    int    `mapstructure:"cooldown_seconds_after_scale_down"`
	CFAPIURL                         string `mapstructure:"cf_api_url"`
	CFOrg                            string `mapstructure:"cf_org"`
	CFSpace                          string `mapstructure:"cf_space"`
	StatsDEnabled                    bool   `mapstructure:"statsd_enabled"`
	LogLevel                         string `mapstructure:"log_level"`
	LogMode                          string `mapstructure:"log_mode"`
}

// ScalersConfig is the SCALERS block: defaults shared across every app
// that doesn't override them per-scaler.
type ScalersConfig struct {
	DefaultCPUPercentageThreshold float64 `mapstructure:"default_cpu_percentage_threshold"`
	DefaultScheduleScaleFactor    float64 `mapstructure:"default_schedule_scale_factor"`
	SQSQueuePrefix                string  `mapstructure:"sqs_queue_prefix"`
	ScheduleScalerEnabled         bool    `mapstructure:"schedule_scaler_enabled"`
}

// APIConfig configures the optional Observability API.
type APIConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"-"`
}

// Config is the fully-resolved configuration: YAML-sourced GENERAL,
// SCALERS and APPS blocks, plus the credentials and endpoints sourced
// directly from the environment.
type Config struct {
	General GeneralConfig       `mapstructure:"general"`
	Scalers ScalersConfig       `mapstructure:"scalers"`
	Apps    []models.AppSpec    `mapstructure:"apps"`
	API     APIConfig           `mapstructure:"api"`

	CFUsername string
	CFPassword string

	AWSRegion string

	HTTPProxy  string
	HTTPSProxy string

	RedisURL    string
	DatabaseURI string

	StatsDHost   string
	StatsDPort   int
	StatsDPrefix string
}

// ScheduleInterval is GeneralConfig.ScheduleIntervalSeconds as a
// time.Duration, defaulting to 60s when unset.
func (c *Config) ScheduleInterval() time.Duration {
	if c.General.ScheduleIntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.General.ScheduleIntervalSeconds) * time.Second
}

func (c *Config) CooldownUp() time.Duration {
	if c.General.CooldownSecondsAfterScaleUp <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.General.CooldownSecondsAfterScaleUp) * time.Second
}

func (c *Config) CooldownDown() time.Duration {
	if c.General.CooldownSecondsAfterScaleDown <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.General.CooldownSecondsAfterScaleDown) * time.Second
}
