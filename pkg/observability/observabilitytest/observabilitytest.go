// Package observabilitytest provides loggers and meters whose output can be
// inspected from tests.
package observabilitytest

import (
	"testing"

	"github.com/jt828/wolam/pkg/observability"
	"github.com/jt828/wolam/pkg/observability/implementation"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewLogger returns a logger whose records are captured in the returned
// ObservedLogs. Records below level are dropped exactly as in production.
func NewLogger(t testing.TB, name string, level observability.Level) (observability.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log, err := implementation.NewZapLogger(implementation.LoggerConfig{Name: name, Level: level, Core: core})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	return log, logs
}

// NewMeter returns a Prometheus-backed meter and its registry.
func NewMeter() (observability.Meter, *prometheus.Registry) {
	m := implementation.NewPrometheusMeter()
	return m, implementation.PromRegistry(m)
}

// Find returns the series of family name whose labels equal labels, or nil.
func Find(t testing.TB, reg prometheus.Gatherer, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m.GetLabel(), labels) {
				return m
			}
		}
	}
	return nil
}

func CounterValue(t testing.TB, reg prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()
	m := Find(t, reg, name, labels)
	if m == nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func GaugeValue(t testing.TB, reg prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()
	m := Find(t, reg, name, labels)
	if m == nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// SummaryValue returns the sample count and sum of a summary series.
func SummaryValue(t testing.TB, reg prometheus.Gatherer, name string, labels map[string]string) (uint64, float64) {
	t.Helper()
	m := Find(t, reg, name, labels)
	if m == nil {
		return 0, 0
	}
	return m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()
}

func matches(pairs []*dto.LabelPair, labels map[string]string) bool {
	if len(pairs) != len(labels) {
		return false
	}
	for _, p := range pairs {
		if v, ok := labels[p.GetName()]; !ok || v != p.GetValue() {
			return false
		}
	}
	return true
}
