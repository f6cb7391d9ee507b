package implementation_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jt828/wolam/pkg/observability"
	"github.com/jt828/wolam/pkg/observability/implementation"
	"github.com/jt828/wolam/pkg/observability/observabilitytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler_AnyPathServesExposition(t *testing.T) {
	meter, reg := observabilitytest.NewMeter()
	c := meter.Counter("test_api_total", observability.MetricOpt{Help: "api calls", LabelKeys: []string{"endpoint"}})
	require.NoError(t, c.Inc(1, observability.Label{Key: "endpoint", Value: "/logit"}))

	h := implementation.MetricsHandler(reg)
	for _, path := range []string{"/", "/metrics", "/anything/else"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rr.Code, path)
		body := rr.Body.String()
		assert.Contains(t, body, "# HELP test_api_total api calls", path)
		assert.Contains(t, body, "# TYPE test_api_total counter", path)
		assert.Contains(t, body, `test_api_total{endpoint="/logit"} 1`, path)
		assert.Contains(t, body, "go_goroutines", path)
	}
}

func TestStartMetricsServer(t *testing.T) {
	meter, reg := observabilitytest.NewMeter()
	g := meter.Gauge("test_sessions", observability.MetricOpt{Help: "sessions"})
	require.NoError(t, g.Set(3))

	srv, err := implementation.StartMetricsServer("127.0.0.1:0", reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_sessions 3")
}

func TestObservability_StartAndClose(t *testing.T) {
	obs, err := implementation.NewObservability(implementation.Config{
		ServiceName: "wolam",
		LogLevel:    observability.LevelError,
		LogOutput:   io.Discard,
		MetricsAddr: "127.0.0.1:0",
	})
	require.NoError(t, err)

	require.NoError(t, obs.Start(context.Background()))
	addr := implementation.MetricsAddr(obs)
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, span := obs.Tracer().Start(context.Background(), "noop")
	span.SetString("k", "v")
	span.End()
	assert.NotNil(t, ctx)

	assert.NoError(t, obs.Close(context.Background()))
}
