package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jt828/wolam/pkg/observability"
)

type LookupFunc func(string) (string, bool)

const (
	DefaultApplicationName = "Local Log"
	DefaultEnvironment     = "development"
	DefaultRegion          = "eu-gb"
)

type Config struct {
	// ApplicationName names the application logger and the traced service.
	ApplicationName string
	HTTP            HTTPConfig
	Metrics         MetricsConfig
	GRPC            GRPCConfig
	Generation      GenerationConfig
	Observability   ObservabilityConfig
	Database        DatabaseConfig
}

type HTTPConfig struct {
	Address         string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type MetricsConfig struct {
	Address string
	// MaxLabelSeries bounds the label combinations of the api counter.
	MaxLabelSeries int
}

type GRPCConfig struct {
	Address string
}

type GenerationConfig struct {
	UnitDelay          time.Duration
	MaxMetricCount     int
	MaxConcurrentJobs  int
	DefaultEnvironment string
	DefaultRegion      string
}

type ObservabilityConfig struct {
	LogLevel     observability.Level
	OTLPEndpoint string
	// TraceSampleRatio is the fraction of root spans exported, in (0, 1].
	TraceSampleRatio float64
}

type DatabaseConfig struct {
	// DSN selects the Postgres job store. Empty keeps jobs in memory.
	DSN          string
	PingInterval time.Duration
	Hostname     string
}

func Default() Config {
	return Config{
		ApplicationName: DefaultApplicationName,
		HTTP: HTTPConfig{
			Address:         ":8000",
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Address:        ":8002",
			MaxLabelSeries: 1000,
		},
		GRPC: GRPCConfig{
			Address: ":50051",
		},
		Generation: GenerationConfig{
			UnitDelay:          time.Second,
			MaxMetricCount:     3600,
			MaxConcurrentJobs:  4,
			DefaultEnvironment: DefaultEnvironment,
			DefaultRegion:      DefaultRegion,
		},
		Observability: ObservabilityConfig{
			LogLevel:         observability.LevelWarn,
			TraceSampleRatio: 1,
		},
		Database: DatabaseConfig{
			PingInterval: 10 * time.Second,
		},
	}
}

func LoadFromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

func Load(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := Default()

	name, err := ResolveApplicationName(lookup)
	if err != nil {
		return Config{}, err
	}
	cfg.ApplicationName = name

	if err := applyString(lookup, "WOLAM_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "WOLAM_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "WOLAM_HTTP_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "WOLAM_METRICS_ADDR", &cfg.Metrics.Address); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "WOLAM_MAX_LABEL_SERIES", &cfg.Metrics.MaxLabelSeries); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "WOLAM_GRPC_ADDR", &cfg.GRPC.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "WOLAM_METRICS_UNIT_DELAY", &cfg.Generation.UnitDelay); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "WOLAM_MAX_METRIC_COUNT", &cfg.Generation.MaxMetricCount); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "WOLAM_MAX_CONCURRENT_JOBS", &cfg.Generation.MaxConcurrentJobs); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "WOLAM_DEFAULT_ENVIRONMENT", &cfg.Generation.DefaultEnvironment); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "WOLAM_DEFAULT_REGION", &cfg.Generation.DefaultRegion); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "WOLAM_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "WOLAM_OTLP_ENDPOINT", &cfg.Observability.OTLPEndpoint); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "WOLAM_TRACE_SAMPLE_RATIO", &cfg.Observability.TraceSampleRatio); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATABASE_DSN", &cfg.Database.DSN); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "WOLAM_DB_PING_INTERVAL", &cfg.Database.PingInterval); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "HOSTNAME", &cfg.Database.Hostname); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	if c.Metrics.Address == "" {
		return fmt.Errorf("metrics address is required")
	}
	if c.Metrics.Address == c.HTTP.Address {
		return fmt.Errorf("metrics address %q must differ from http address", c.Metrics.Address)
	}
	if c.Metrics.MaxLabelSeries < 0 {
		return fmt.Errorf("max label series must be >= 0, got %d", c.Metrics.MaxLabelSeries)
	}
	if c.Generation.UnitDelay < 0 {
		return fmt.Errorf("metrics unit delay must be >= 0, got %s", c.Generation.UnitDelay)
	}
	if c.Generation.MaxMetricCount <= 0 {
		return fmt.Errorf("max metric count must be > 0, got %d", c.Generation.MaxMetricCount)
	}
	if c.Generation.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("max concurrent jobs must be > 0, got %d", c.Generation.MaxConcurrentJobs)
	}
	if c.Database.PingInterval <= 0 {
		return fmt.Errorf("db ping interval must be > 0, got %s", c.Database.PingInterval)
	}
	if c.Observability.TraceSampleRatio <= 0 || c.Observability.TraceSampleRatio > 1 {
		return fmt.Errorf("trace sample ratio must be in (0, 1], got %g", c.Observability.TraceSampleRatio)
	}
	if !c.Observability.LogLevel.Valid() {
		return fmt.Errorf("invalid log level %s", c.Observability.LogLevel)
	}
	return nil
}

type vcapApplication struct {
	ApplicationName string `json:"application_name"`
}

// ResolveApplicationName reads the Cloud Foundry application name when the
// process runs with bound services, and falls back to DefaultApplicationName.
func ResolveApplicationName(lookup LookupFunc) (string, error) {
	if _, ok := lookup("VCAP_SERVICES"); !ok {
		return DefaultApplicationName, nil
	}
	raw, ok := lookup("VCAP_APPLICATION")
	if !ok {
		return "", fmt.Errorf("VCAP_SERVICES is set but VCAP_APPLICATION is missing")
	}
	var app vcapApplication
	if err := json.Unmarshal([]byte(raw), &app); err != nil {
		return "", fmt.Errorf("invalid VCAP_APPLICATION: %w", err)
	}
	if app.ApplicationName == "" {
		return "", fmt.Errorf("VCAP_APPLICATION has no application_name")
	}
	return app.ApplicationName, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *observability.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level, ok := observability.ParseLevel(strings.TrimSpace(raw))
	if !ok {
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	*dst = level
	return nil
}
