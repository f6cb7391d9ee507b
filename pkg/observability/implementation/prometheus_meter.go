package implementation

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jt828/wolam/pkg/apperror"
	"github.com/jt828/wolam/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type prometheusMeter struct {
	registry *prometheus.Registry
}

// NewPrometheusMeter returns a meter backed by a fresh registry that also
// carries the Go runtime and process collectors.
func NewPrometheusMeter() observability.Meter {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &prometheusMeter{registry: reg}
}

func (m *prometheusMeter) Registry() *prometheus.Registry {
	return m.registry
}

func PromRegistry(m observability.Meter) *prometheus.Registry {
	if pm, ok := m.(*prometheusMeter); ok {
		return pm.Registry()
	}
	return nil
}

// -------------------- Label sets --------------------

// labelSet validates label sets against the declared keys of one family and
// enforces the optional series bound.
type labelSet struct {
	metric    string
	keys      []string
	maxSeries int

	mu   sync.Mutex
	seen map[string]struct{}
}

func newLabelSet(metric string, keys []string, maxSeries int) *labelSet {
	sorted := append([]string(nil), keys...)
	slices.Sort(sorted)
	return &labelSet{metric: metric, keys: sorted, maxSeries: maxSeries, seen: make(map[string]struct{})}
}

func (s *labelSet) resolve(labels []observability.Label) (prometheus.Labels, error) {
	if len(labels) != len(s.keys) {
		return nil, &apperror.InvalidLabelError{
			Metric: s.metric,
			Err:    fmt.Errorf("expected labels %v, got %d labels", s.keys, len(labels)),
		}
	}

	m := make(prometheus.Labels, len(labels))
	for _, l := range labels {
		if _, dup := m[l.Key]; dup {
			return nil, &apperror.InvalidLabelError{Metric: s.metric, Err: fmt.Errorf("duplicate label %q", l.Key)}
		}
		m[l.Key] = l.Value
	}
	for _, k := range s.keys {
		if _, ok := m[k]; !ok {
			return nil, &apperror.InvalidLabelError{Metric: s.metric, Err: fmt.Errorf("missing label %q", k)}
		}
	}

	return m, nil
}

func (s *labelSet) seriesKey(m prometheus.Labels) string {
	var b strings.Builder
	for _, k := range s.keys {
		b.WriteString(m[k])
		b.WriteByte(0xff)
	}
	return b.String()
}

// admit reserves a series slot for m. The returned release gives the slot
// back when the combination turns out to be unusable.
func (s *labelSet) admit(m prometheus.Labels) (release func(), err error) {
	if s.maxSeries <= 0 {
		return func() {}, nil
	}
	key := s.seriesKey(m)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return func() {}, nil
	}
	if len(s.seen) >= s.maxSeries {
		return nil, fmt.Errorf("metric %s: %d series: %w", s.metric, s.maxSeries, apperror.ErrCardinalityExceeded)
	}
	s.seen[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.seen, key)
		s.mu.Unlock()
	}, nil
}

// child resolves labels into the family member returned by get. A slot is
// only kept for combinations the vec accepts.
func child[T any](s *labelSet, labels []observability.Label, get func(prometheus.Labels) (T, error)) (T, error) {
	var zero T
	m, err := s.resolve(labels)
	if err != nil {
		return zero, err
	}
	release, err := s.admit(m)
	if err != nil {
		return zero, err
	}
	metric, err := get(m)
	if err != nil {
		release()
		return zero, &apperror.InvalidLabelError{Metric: s.metric, Err: err}
	}
	return metric, nil
}

// -------------------- Counter --------------------

type promCounter struct {
	vec    *prometheus.CounterVec
	labels *labelSet
}

func (m *prometheusMeter) Counter(name string, opts ...observability.MetricOpt) observability.Counter {
	opt := firstOpt(opts)

	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        name,
			Help:        opt.Help,
			ConstLabels: toPromConstLabels(opt.ConstLabels),
		},
		opt.LabelKeys,
	)

	m.registry.MustRegister(vec)
	return &promCounter{vec: vec, labels: newLabelSet(name, opt.LabelKeys, opt.MaxSeries)}
}

func (c *promCounter) Inc(v float64, labels ...observability.Label) error {
	if v < 0 {
		return fmt.Errorf("counter %s cannot decrease by %v: %w", c.labels.metric, v, apperror.ErrInvalidArgument)
	}
	counter, err := child(c.labels, labels, c.vec.GetMetricWith)
	if err != nil {
		return err
	}
	counter.Add(v)
	return nil
}

// -------------------- Histogram --------------------

type promHistogram struct {
	vec    *prometheus.HistogramVec
	labels *labelSet
}

func (m *prometheusMeter) Histogram(name string, opts ...observability.MetricOpt) observability.Histogram {
	opt := firstOpt(opts)

	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        name,
			Help:        opt.Help,
			Buckets:     opt.Buckets,
			ConstLabels: toPromConstLabels(opt.ConstLabels),
		},
		opt.LabelKeys,
	)

	m.registry.MustRegister(vec)
	return &promHistogram{vec: vec, labels: newLabelSet(name, opt.LabelKeys, opt.MaxSeries)}
}

func (h *promHistogram) Observe(v float64, labels ...observability.Label) error {
	obs, err := child(h.labels, labels, h.vec.GetMetricWith)
	if err != nil {
		return err
	}
	obs.Observe(v)
	return nil
}

// -------------------- Gauge --------------------

type promGauge struct {
	vec    *prometheus.GaugeVec
	labels *labelSet
}

func (m *prometheusMeter) Gauge(name string, opts ...observability.MetricOpt) observability.Gauge {
	opt := firstOpt(opts)

	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        name,
			Help:        opt.Help,
			ConstLabels: toPromConstLabels(opt.ConstLabels),
		},
		opt.LabelKeys,
	)

	m.registry.MustRegister(vec)
	return &promGauge{vec: vec, labels: newLabelSet(name, opt.LabelKeys, opt.MaxSeries)}
}

func (g *promGauge) gauge(labels []observability.Label) (prometheus.Gauge, error) {
	return child(g.labels, labels, g.vec.GetMetricWith)
}

func (g *promGauge) Set(v float64, labels ...observability.Label) error {
	gauge, err := g.gauge(labels)
	if err != nil {
		return err
	}
	gauge.Set(v)
	return nil
}

func (g *promGauge) Add(v float64, labels ...observability.Label) error {
	gauge, err := g.gauge(labels)
	if err != nil {
		return err
	}
	gauge.Add(v)
	return nil
}

func (g *promGauge) Inc(delta float64, labels ...observability.Label) error {
	return g.Add(delta, labels...)
}

func (g *promGauge) Dec(delta float64, labels ...observability.Label) error {
	return g.Add(-delta, labels...)
}

// -------------------- Summary --------------------

type promSummary struct {
	vec    *prometheus.SummaryVec
	labels *labelSet
}

func (m *prometheusMeter) Summary(name string, opts ...observability.MetricOpt) observability.Summary {
	opt := firstOpt(opts)

	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:        name,
			Help:        opt.Help,
			Objectives:  opt.Objectives,
			ConstLabels: toPromConstLabels(opt.ConstLabels),
		},
		opt.LabelKeys,
	)

	m.registry.MustRegister(vec)
	return &promSummary{vec: vec, labels: newLabelSet(name, opt.LabelKeys, opt.MaxSeries)}
}

func (s *promSummary) Observe(v float64, labels ...observability.Label) error {
	obs, err := child(s.labels, labels, s.vec.GetMetricWith)
	if err != nil {
		return err
	}
	obs.Observe(v)
	return nil
}

// Start drops the observation when the labels are invalid; the caller has no
// error path inside a deferred call.
func (s *promSummary) Start(labels ...observability.Label) func() {
	start := time.Now()
	return func() {
		_ = s.Observe(time.Since(start).Seconds(), labels...)
	}
}

// -------------------- Timer --------------------

type promTimer struct {
	histogram   *promHistogram
	constLabels []observability.Label
}

func (m *prometheusMeter) Timer(name string, opts ...observability.MetricOpt) observability.Timer {
	opt := firstOpt(opts)
	if len(opt.Buckets) == 0 {
		opt.Buckets = prometheus.DefBuckets
	}

	keys := append([]string(nil), opt.LabelKeys...)
	for _, k := range getLabelKeys(opt.ConstLabels) {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}

	h := m.Histogram(name, observability.MetricOpt{
		Help:      opt.Help,
		Buckets:   opt.Buckets,
		LabelKeys: keys,
		MaxSeries: opt.MaxSeries,
	}).(*promHistogram)

	return &promTimer{
		histogram:   h,
		constLabels: opt.ConstLabels,
	}
}

// Start takes the dynamic labels; constLabels of the timer fill in any key
// the caller leaves out.
func (t *promTimer) Start(labels ...observability.Label) func() {
	start := time.Now()
	return func() {
		merged := mergeLabels(t.constLabels, labels)
		_ = t.histogram.Observe(time.Since(start).Seconds(), merged...)
	}
}

// -------------------- Helpers --------------------

func firstOpt(opts []observability.MetricOpt) observability.MetricOpt {
	if len(opts) == 0 {
		return observability.MetricOpt{}
	}
	return opts[0]
}

func getLabelKeys(labels []observability.Label) []string {
	keys := make([]string, len(labels))
	for i, l := range labels {
		keys[i] = l.Key
	}
	return keys
}

func toPromLabelsMap(labels []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(labels))
	for _, l := range labels {
		m[l.Key] = l.Value
	}
	return m
}

func toPromConstLabels(labels []observability.Label) prometheus.Labels {
	if len(labels) == 0 {
		return nil
	}
	return toPromLabelsMap(labels)
}

func mergeLabels(defaults, dynamic []observability.Label) []observability.Label {
	out := make([]observability.Label, 0, len(defaults)+len(dynamic))
	set := make(map[string]struct{}, len(dynamic))
	for _, l := range dynamic {
		set[l.Key] = struct{}{}
	}
	for _, l := range defaults {
		if _, ok := set[l.Key]; !ok {
			out = append(out, l)
		}
	}
	return append(out, dynamic...)
}
