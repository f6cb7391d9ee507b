package observability

// Meter creates metric families. Families are registered once; creating the
// same name twice panics.
type Meter interface {
	Counter(name string, opts ...MetricOpt) Counter
	Histogram(name string, opts ...MetricOpt) Histogram
	Gauge(name string, opts ...MetricOpt) Gauge
	Summary(name string, opts ...MetricOpt) Summary
	Timer(name string, opts ...MetricOpt) Timer
}

// Counter is monotonic. Every distinct label combination is its own series,
// created on first increment.
type Counter interface {
	Inc(v float64, labels ...Label) error
}

type Histogram interface {
	Observe(v float64, labels ...Label) error
}

type Gauge interface {
	Set(v float64, labels ...Label) error
	Add(v float64, labels ...Label) error
	Inc(delta float64, labels ...Label) error
	Dec(delta float64, labels ...Label) error
}

// Summary accumulates count and sum of observations. Start returns a func
// that observes the elapsed seconds since Start when called; defer it.
type Summary interface {
	Observe(v float64, labels ...Label) error
	Start(labels ...Label) func()
}

type Timer interface {
	Start(labels ...Label) func()
}
