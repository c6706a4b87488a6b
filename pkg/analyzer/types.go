package analyzer

import "time"

// MetricKind identifies which resource a sample series measures
type MetricKind string

const (
	MetricCPU    MetricKind = "cpu"
	MetricMemory MetricKind = "memory"
	MetricDisk   MetricKind = "disk"
)

// MetricSample represents a single utilization data point (percent of capacity)
type MetricSample struct {
	Timestamp time.Time
	Value     float64
}

// Summary holds the per-metric statistics for one server over the analysis window
type Summary struct {
	Server string
	Metric MetricKind

	Average float64
	P95     float64
	Max     float64
	StdDev  float64

	SampleCount   int
	RejectedCount int
	CoverageRatio float64

	// Insufficient is set when the sample count is below the configured
	// minimum. P95 and StdDev are not computed in that case and must be
	// treated as missing by consumers, not as zero.
	Insufficient bool
}

// P95Known reports whether the P95 statistic was actually computed
func (s Summary) P95Known() bool {
	return s.SampleCount > 0 && !s.Insufficient
}

// HasData reports whether any valid samples were present
func (s Summary) HasData() bool {
	return s.SampleCount > 0
}

// ContentionEvent represents a sustained excursion above a pressure threshold
type ContentionEvent struct {
	Server      string
	Metric      MetricKind
	WindowStart time.Time
	WindowEnd   time.Time
	PeakValue   float64
	Duration    time.Duration
}
