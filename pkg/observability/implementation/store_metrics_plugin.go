package implementation

import (
	"context"
	"time"

	"github.com/jt828/wolam/pkg/observability"
	"gorm.io/gorm"
)

type startTimeKey struct{}

// StoreMetricsPlugin records latency and outcome of every statement the job
// store sends through gorm.
type StoreMetricsPlugin struct {
	latency observability.Histogram
	total   observability.Counter
	errors  observability.Counter
}

func NewStoreMetricsPlugin(meter observability.Meter) *StoreMetricsPlugin {
	return &StoreMetricsPlugin{
		latency: meter.Histogram("wolam_job_store_query_duration_seconds", observability.MetricOpt{
			Help:      "Duration of job store queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			LabelKeys: []string{"operation"},
		}),
		total: meter.Counter("wolam_job_store_queries_total", observability.MetricOpt{
			Help:      "Total number of job store queries",
			LabelKeys: []string{"operation"},
		}),
		errors: meter.Counter("wolam_job_store_query_errors_total", observability.MetricOpt{
			Help:      "Total number of failed job store queries",
			LabelKeys: []string{"operation"},
		}),
	}
}

func (p *StoreMetricsPlugin) Name() string {
	return "wolam:store_metrics"
}

func (p *StoreMetricsPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	register := []struct {
		op     string
		before func(name string, fn func(*gorm.DB)) error
		after  func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, r := range register {
		if err := r.before("wolam:before_"+r.op, p.before); err != nil {
			return err
		}
		if err := r.after("wolam:after_"+r.op, p.after(r.op)); err != nil {
			return err
		}
	}
	return nil
}

func (p *StoreMetricsPlugin) before(db *gorm.DB) {
	db.Statement.Context = context.WithValue(db.Statement.Context, startTimeKey{}, time.Now())
}

func (p *StoreMetricsPlugin) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		opLabel := observability.Label{Key: "operation", Value: operation}

		_ = p.total.Inc(1, opLabel)

		if db.Error != nil {
			_ = p.errors.Inc(1, opLabel)
		}

		startTime, ok := db.Statement.Context.Value(startTimeKey{}).(time.Time)
		if ok {
			_ = p.latency.Observe(time.Since(startTime).Seconds(), opLabel)
		}
	}
}
