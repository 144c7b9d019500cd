package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// ErrConfigLoad wraps any failure to load or parse the configuration
// file, a fatal ConfigLoadError per the error handling policy: the
// process exits non-zero before the scheduler ever starts.
type ErrConfigLoad struct {
	cause error
}

func (e *ErrConfigLoad) Error() string { return "config: load failed: " + e.cause.Error() }
func (e *ErrConfigLoad) Unwrap() error { return e.cause }

// Load reads the YAML config file at path (or $CONFIG_PATH, defaulting
// to "./../config.yml" to match the original deployment layout),
// overlays the explicitly-named environment variables, and validates
// the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./../config.yml"
	}

	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, &ErrConfigLoad{cause: err}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ErrConfigLoad{cause: err}
	}

	applyEnvOverlay(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, &ErrConfigLoad{cause: err}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.schedule_interval_seconds", 60)
	v.SetDefault("general.cooldown_seconds_after_scale_up", 300)
	v.SetDefault("general.cooldown_seconds_after_scale_down", 300)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_mode", "production")
	v.SetDefault("scalers.default_cpu_percentage_threshold", 60.0)
	v.SetDefault("scalers.default_schedule_scale_factor", 0.1)
	v.SetDefault("scalers.schedule_scaler_enabled", true)
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
}

// applyEnvOverlay reads the environment variables spec.md §6 names
// explicitly. These don't follow the nested GENERAL/SCALERS/APPS key
// convention viper's AutomaticEnv would expect, so they're read
// directly rather than bound through viper.
func applyEnvOverlay(cfg *Config) {
	cfg.CFUsername = os.Getenv("CF_USERNAME")
	cfg.CFPassword = os.Getenv("CF_PASSWORD")

	cfg.AWSRegion = os.Getenv("AWS_REGION")
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "eu-west-1"
	}

	cfg.HTTPProxy = os.Getenv("HTTP_PROXY")
	cfg.HTTPSProxy = os.Getenv("HTTPS_PROXY")

	cfg.RedisURL = os.Getenv("REDIS_URL")

	if uri := os.Getenv("SQLALCHEMY_DATABASE_URI"); uri != "" {
		cfg.DatabaseURI = uri
	} else if uri, err := databaseURIFromVCAP(os.Getenv("VCAP_SERVICES")); err == nil && uri != "" {
		cfg.DatabaseURI = uri
	}

	if prefix := os.Getenv("SQS_QUEUE_PREFIX"); prefix != "" {
		cfg.Scalers.SQSQueuePrefix = prefix
	}

	cfg.StatsDHost = os.Getenv("STATSD_HOST")
	if cfg.StatsDHost == "" {
		cfg.StatsDHost = "localhost"
	}
	cfg.StatsDPort = 8125
	if p := os.Getenv("STATSD_PORT"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			cfg.StatsDPort = parsed
		}
	}
	cfg.StatsDPrefix = os.Getenv("STATSD_PREFIX")

	cfg.API.JWTSecret = os.Getenv("JWT_SECRET")
}

func databaseURIFromVCAP(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	var parsed struct {
		Postgres []struct {
			Credentials struct {
				URI string `json:"uri"`
			} `json:"credentials"`
		} `json:"postgres"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", fmt.Errorf("config: parse VCAP_SERVICES: %w", err)
	}
	if len(parsed.Postgres) == 0 {
		return "", nil
	}
	return parsed.Postgres[0].Credentials.URI, nil
}
