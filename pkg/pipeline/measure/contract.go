package measure

import "time"

// Measure holds one metric per registered stage, keyed by "pipeline/stage".
type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	RemoveMetric(name string)
	AllMetrics() map[string]Metric
}

// Metric accumulates the computation durations of a stage.
type Metric interface {
	AddDuration(elapsed time.Duration)
	AVGDuration() time.Duration
	TotalDuration() time.Duration
	Count() int64
}
