package implementation_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jt828/wolam/pkg/observability"
	"github.com/jt828/wolam/pkg/observability/implementation"
	"github.com/jt828/wolam/pkg/observability/observabilitytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestZapLogger_Threshold(t *testing.T) {
	for _, threshold := range observability.Levels() {
		t.Run(threshold.String(), func(t *testing.T) {
			log, logs := observabilitytest.NewLogger(t, "Local Log", observability.LevelDebug)
			log.SetLevel(threshold)

			for _, level := range observability.Levels() {
				log.Log(level, "msg-"+level.String())
			}

			var written []string
			for _, e := range logs.All() {
				written = append(written, e.Message)
			}
			for _, level := range observability.Levels() {
				if level >= threshold {
					assert.Contains(t, written, "msg-"+level.String())
				} else {
					assert.NotContains(t, written, "msg-"+level.String())
				}
			}
			assert.Equal(t, threshold, log.Level())
		})
	}
}

func TestZapLogger_RecordCarriesLevelAndName(t *testing.T) {
	log, logs := observabilitytest.NewLogger(t, "Local Log", observability.LevelWarn)

	log.Log(observability.LevelError, "boom", observability.String("k", "v"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "boom", entry.Message)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "Local Log", entry.LoggerName)
	assert.Equal(t, "v", entry.ContextMap()["k"])
}

func TestZapLogger_CriticalDoesNotPanic(t *testing.T) {
	log, logs := observabilitytest.NewLogger(t, "app", observability.LevelCritical)

	assert.NotPanics(t, func() {
		log.Critical("disk on fire")
		log.Log(observability.LevelCritical, "still on fire")
	})
	assert.Equal(t, 2, logs.Len())
}

func TestZapLogger_WithSharesThreshold(t *testing.T) {
	log, logs := observabilitytest.NewLogger(t, "app", observability.LevelInfo)
	child := log.With(observability.String("request", "1"))

	log.SetLevel(observability.LevelError)
	child.Info("dropped")
	child.Error("kept")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
	assert.Equal(t, observability.LevelError, child.Level())
	assert.False(t, child.Enabled(observability.LevelWarn))
	assert.True(t, child.Enabled(observability.LevelCritical))
}

func TestZapLogger_ConcurrentSetLevel(t *testing.T) {
	log, _ := observabilitytest.NewLogger(t, "app", observability.LevelWarn)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			level := observability.Levels()[i%len(observability.Levels())]
			log.SetLevel(level)
			log.Log(level, "x")
		}(i)
	}
	wg.Wait()
	assert.True(t, log.Level().Valid())
}

func TestZapLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := implementation.NewZapLogger(implementation.LoggerConfig{
		Name:   "Local Log",
		Level:  observability.LevelInfo,
		Output: &buf,
	})
	require.NoError(t, err)

	log.Critical("boom", observability.Err(errors.New("cause")))
	log.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "critical", record["level"])
	assert.Equal(t, "Local Log", record["logger"])
	assert.Equal(t, "boom", record["msg"])
	assert.Equal(t, "cause", record["error"])
	assert.Equal(t, "Local Log", log.Name())
}
