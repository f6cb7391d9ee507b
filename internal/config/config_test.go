package config

import (
	"testing"
	"time"

	"github.com/jt828/wolam/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(mapLookup(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "Local Log", cfg.ApplicationName)
	assert.Equal(t, ":8000", cfg.HTTP.Address)
	assert.Equal(t, ":8002", cfg.Metrics.Address)
	assert.Equal(t, ":50051", cfg.GRPC.Address)
	assert.Equal(t, observability.LevelWarn, cfg.Observability.LogLevel)
	assert.Equal(t, time.Second, cfg.Generation.UnitDelay)
	assert.Equal(t, 3600, cfg.Generation.MaxMetricCount)
	assert.Equal(t, 4, cfg.Generation.MaxConcurrentJobs)
	assert.Equal(t, 1000, cfg.Metrics.MaxLabelSeries)
	assert.Equal(t, "development", cfg.Generation.DefaultEnvironment)
	assert.Equal(t, "eu-gb", cfg.Generation.DefaultRegion)
	assert.Empty(t, cfg.Database.DSN)
	assert.Empty(t, cfg.Observability.OTLPEndpoint)
	assert.Equal(t, 1.0, cfg.Observability.TraceSampleRatio)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	cfg, err := Load(mapLookup(map[string]string{
		"WOLAM_HTTP_ADDR":           " :9000 ",
		"WOLAM_METRICS_ADDR":        ":9002",
		"WOLAM_GRPC_ADDR":           ":9051",
		"WOLAM_LOG_LEVEL":           "debug",
		"WOLAM_METRICS_UNIT_DELAY":  "10ms",
		"WOLAM_MAX_METRIC_COUNT":    "50",
		"WOLAM_MAX_CONCURRENT_JOBS": "2",
		"WOLAM_MAX_LABEL_SERIES":    "0",
		"WOLAM_OTLP_ENDPOINT":       "collector:4317",
		"WOLAM_TRACE_SAMPLE_RATIO":  "0.25",
		"DATABASE_DSN":              "postgres://localhost/wolam",
		"HOSTNAME":                  "wolam-7d9f",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Address)
	assert.Equal(t, ":9002", cfg.Metrics.Address)
	assert.Equal(t, ":9051", cfg.GRPC.Address)
	assert.Equal(t, observability.LevelDebug, cfg.Observability.LogLevel)
	assert.Equal(t, 10*time.Millisecond, cfg.Generation.UnitDelay)
	assert.Equal(t, 50, cfg.Generation.MaxMetricCount)
	assert.Equal(t, 2, cfg.Generation.MaxConcurrentJobs)
	assert.Equal(t, 0, cfg.Metrics.MaxLabelSeries)
	assert.Equal(t, "collector:4317", cfg.Observability.OTLPEndpoint)
	assert.Equal(t, 0.25, cfg.Observability.TraceSampleRatio)
	assert.Equal(t, "postgres://localhost/wolam", cfg.Database.DSN)
	assert.Equal(t, "wolam-7d9f", cfg.Database.Hostname)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown log level", env: map[string]string{"WOLAM_LOG_LEVEL": "verbose"}},
		{name: "upper case log level", env: map[string]string{"WOLAM_LOG_LEVEL": "DEBUG"}},
		{name: "bad duration", env: map[string]string{"WOLAM_METRICS_UNIT_DELAY": "soon"}},
		{name: "bad int", env: map[string]string{"WOLAM_MAX_METRIC_COUNT": "many"}},
		{name: "zero max metric count", env: map[string]string{"WOLAM_MAX_METRIC_COUNT": "0"}},
		{name: "zero concurrent jobs", env: map[string]string{"WOLAM_MAX_CONCURRENT_JOBS": "0"}},
		{name: "negative label series", env: map[string]string{"WOLAM_MAX_LABEL_SERIES": "-1"}},
		{name: "negative delay", env: map[string]string{"WOLAM_METRICS_UNIT_DELAY": "-1s"}},
		{name: "shared listener", env: map[string]string{"WOLAM_METRICS_ADDR": ":8000"}},
		{name: "bad sample ratio", env: map[string]string{"WOLAM_TRACE_SAMPLE_RATIO": "half"}},
		{name: "zero sample ratio", env: map[string]string{"WOLAM_TRACE_SAMPLE_RATIO": "0"}},
		{name: "sample ratio above one", env: map[string]string{"WOLAM_TRACE_SAMPLE_RATIO": "1.5"}},
		{name: "empty http addr", env: map[string]string{"WOLAM_HTTP_ADDR": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(mapLookup(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresLookup(t *testing.T) {
	_, err := Load(nil)
	assert.Error(t, err)
}

func TestResolveApplicationName(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		name, err := ResolveApplicationName(mapLookup(map[string]string{
			"VCAP_APPLICATION": `{"application_name":"ignored"}`,
		}))
		require.NoError(t, err)
		assert.Equal(t, "Local Log", name)
	})

	t.Run("cloud foundry", func(t *testing.T) {
		name, err := ResolveApplicationName(mapLookup(map[string]string{
			"VCAP_SERVICES":    `{}`,
			"VCAP_APPLICATION": `{"application_name":"wolam-prod","space_name":"dev"}`,
		}))
		require.NoError(t, err)
		assert.Equal(t, "wolam-prod", name)
	})

	t.Run("missing application", func(t *testing.T) {
		_, err := ResolveApplicationName(mapLookup(map[string]string{"VCAP_SERVICES": `{}`}))
		assert.Error(t, err)
	})

	t.Run("malformed application", func(t *testing.T) {
		_, err := ResolveApplicationName(mapLookup(map[string]string{
			"VCAP_SERVICES":    `{}`,
			"VCAP_APPLICATION": `{not json`,
		}))
		assert.Error(t, err)
	})

	t.Run("name flows into config", func(t *testing.T) {
		cfg, err := Load(mapLookup(map[string]string{
			"VCAP_SERVICES":    `{}`,
			"VCAP_APPLICATION": `{"application_name":"wolam-prod"}`,
		}))
		require.NoError(t, err)
		assert.Equal(t, "wolam-prod", cfg.ApplicationName)
	})
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
