package implementation

import (
	"context"
	"net/http"

	"github.com/jt828/wolam/pkg/observability"
	"go.uber.org/multierr"
)

type observabilityImplementation struct {
	log    observability.Logger
	meter  observability.Meter
	tracer observability.Tracer

	metricsAddr   string
	metricsServer *http.Server
	traceClose    func(context.Context) error
}

func (o *observabilityImplementation) Close(ctx context.Context) error {
	var err error
	if o.metricsServer != nil {
		err = multierr.Append(err, o.metricsServer.Shutdown(ctx))
	}
	if o.traceClose != nil {
		err = multierr.Append(err, o.traceClose(ctx))
	}
	if s, ok := o.log.(interface{ Sync() error }); ok {
		// Sync on a terminal stderr returns EINVAL; ignored.
		_ = s.Sync()
	}
	return err
}
func (o *observabilityImplementation) Logger() observability.Logger { return o.log }
func (o *observabilityImplementation) Meter() observability.Meter   { return o.meter }
func (o *observabilityImplementation) Start(ctx context.Context) error {
	if o.metricsAddr == "" {
		return nil
	}
	if pm, ok := o.meter.(*prometheusMeter); ok {
		srv, err := StartMetricsServer(o.metricsAddr, pm.Registry())
		if err != nil {
			return err
		}
		o.metricsServer = srv
		o.log.Info("metrics listener started", observability.String("addr", srv.Addr))
	}
	return nil
}
func (o *observabilityImplementation) Tracer() observability.Tracer { return o.tracer }

// MetricsAddr returns the bound scrape address once Start has run.
func MetricsAddr(o observability.Observability) string {
	if impl, ok := o.(*observabilityImplementation); ok && impl.metricsServer != nil {
		return impl.metricsServer.Addr
	}
	return ""
}
