package metrics

import "github.com/jt828/wolam/pkg/observability"

const (
	RequestProcessingSeconds = "wolam_request_processing_seconds"
	LogitCounter             = "wolam_logit_counter_total"
	SetLogLevelCounter       = "wolam_set_log_level_counter_total"
	CreateMetricsCounter     = "wolam_create_metrics_counter_total"
	APICounter               = "wolam_api_counter_total"
	ActiveSessionGauge       = "wolam_active_session_gauge"
	Summary                  = "wolam_summary"
	HTTPRequestDuration      = "wolam_http_request_duration_seconds"
	JobDuration              = "wolam_generation_job_duration_seconds"
)

// Label keys of the api counter.
const (
	LabelMethod      = "method"
	LabelEndpoint    = "endpoint"
	LabelEnvironment = "environment"
	LabelRegion      = "region"
)

// Registry holds the application metric families. Build it once per meter.
type Registry struct {
	RequestTime    observability.Summary
	LogitCount     observability.Counter
	SetLevelCount  observability.Counter
	CreateCount    observability.Counter
	APICount       observability.Counter
	ActiveSessions observability.Gauge
	Summary        observability.Summary
	HTTPDuration   observability.Histogram
	JobDuration    observability.Timer
}

// NewRegistry registers the families on meter. maxAPISeries bounds the label
// combinations of the api counter; zero leaves it unbounded.
func NewRegistry(meter observability.Meter, maxAPISeries int) *Registry {
	return &Registry{
		RequestTime: meter.Summary(RequestProcessingSeconds, observability.MetricOpt{
			Help: "Time spent processing request",
		}),
		LogitCount: meter.Counter(LogitCounter, observability.MetricOpt{
			Help: "A counter to keep track of calls to the logit endpoint.",
		}),
		SetLevelCount: meter.Counter(SetLogLevelCounter, observability.MetricOpt{
			Help: "A counter to keep track of calls to the setLogLevel endpoint.",
		}),
		CreateCount: meter.Counter(CreateMetricsCounter, observability.MetricOpt{
			Help: "A counter to keep track of calls to the createMetrics endpoint.",
		}),
		APICount: meter.Counter(APICounter, observability.MetricOpt{
			Help:      "An example counter to keep track of calls to an API endpoint.",
			LabelKeys: []string{LabelMethod, LabelEndpoint, LabelEnvironment, LabelRegion},
			MaxSeries: maxAPISeries,
		}),
		ActiveSessions: meter.Gauge(ActiveSessionGauge, observability.MetricOpt{
			Help: "An example counter to keep track of active sessions (can go up/down).",
		}),
		Summary: meter.Summary(Summary, observability.MetricOpt{
			Help: "A summary",
		}),
		HTTPDuration: meter.Histogram(HTTPRequestDuration, observability.MetricOpt{
			Help:      "Latency of HTTP requests by route.",
			LabelKeys: []string{"method", "route", "status"},
		}),
		JobDuration: meter.Timer(JobDuration, observability.MetricOpt{
			Help: "Run time of background generation jobs.",
		}),
	}
}

// APICall is one observed call of an API endpoint.
type APICall struct {
	Method      string
	Endpoint    string
	Environment string
	Region      string
}

func (c APICall) labels() []observability.Label {
	return []observability.Label{
		{Key: LabelMethod, Value: c.Method},
		{Key: LabelEndpoint, Value: c.Endpoint},
		{Key: LabelEnvironment, Value: c.Environment},
		{Key: LabelRegion, Value: c.Region},
	}
}

// RecordAPICall increments the api counter series of call.
func (r *Registry) RecordAPICall(call APICall) error {
	return r.APICount.Inc(1, call.labels()...)
}
