package implementation

import (
	"context"
	"io"

	"github.com/jt828/wolam/pkg/observability"
)

type Config struct {
	ServiceName string
	LogLevel    observability.Level
	LogOutput   io.Writer
	// MetricsAddr is where the scrape listener binds on Start. Empty disables it.
	MetricsAddr string
	// OTLPEndpoint enables span export. Empty installs a no-op tracer.
	OTLPEndpoint     string
	TraceSampleRatio float64
}

func NewObservability(cfg Config) (observability.Observability, error) {
	log, err := NewZapLogger(LoggerConfig{
		Name:   cfg.ServiceName,
		Level:  cfg.LogLevel,
		Output: cfg.LogOutput,
	})
	if err != nil {
		return nil, err
	}

	meter := NewPrometheusMeter()

	tracer := NewNoopTracer()
	var shutdown func(context.Context) error
	if cfg.OTLPEndpoint != "" {
		tracer, shutdown, err = NewOtelTracer(context.Background(), TracerConfig{
			ServiceName: cfg.ServiceName,
			Endpoint:    cfg.OTLPEndpoint,
			SampleRatio: cfg.TraceSampleRatio,
		})
		if err != nil {
			return nil, err
		}
	}

	return &observabilityImplementation{
		log:         log,
		meter:       meter,
		tracer:      tracer,
		traceClose:  shutdown,
		metricsAddr: cfg.MetricsAddr,
	}, nil
}
