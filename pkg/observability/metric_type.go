package observability

type Label struct {
	Key   string
	Value string
}

type MetricOpt struct {
	Help        string
	Buckets     []float64
	Objectives  map[float64]float64
	ConstLabels []Label
	LabelKeys   []string
	Unit        string
	// MaxSeries bounds the number of label combinations a family may hold.
	// Zero means unbounded.
	MaxSeries int
}
