package analyzer

import (
	"sort"
	"time"
)

// DefaultMinSamples is the minimum sample count required before P95 and
// StdDev are considered meaningful.
const DefaultMinSamples = 3

// Summarizer reduces raw metric samples into per-metric statistics
type Summarizer struct {
	minSamples int
	interval   time.Duration
	window     time.Duration
}

// NewSummarizer creates a summarizer. interval is the nominal sampling
// interval of the data source, window the length of the analysis window;
// together they determine the expected sample count for coverage.
func NewSummarizer(minSamples int, interval, window time.Duration) *Summarizer {
	if minSamples < 1 {
		minSamples = DefaultMinSamples
	}
	return &Summarizer{
		minSamples: minSamples,
		interval:   interval,
		window:     window,
	}
}

// Summarize computes the statistics for one (server, metric) series.
// Callers may not guarantee ordering, so samples are sorted by timestamp
// first. Malformed samples (negative value, duplicate timestamp) are
// rejected individually and counted; they never fail the whole series.
// An empty series yields SampleCount 0 with all statistics missing.
func (s *Summarizer) Summarize(server string, metric MetricKind, samples []MetricSample) Summary {
	summary := Summary{
		Server:       server,
		Metric:       metric,
		Insufficient: true,
	}

	if len(samples) == 0 {
		return summary
	}

	sorted := make([]MetricSample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	values := make([]float64, 0, len(sorted))
	var lastTimestamp time.Time
	for i, sample := range sorted {
		if sample.Value < 0 {
			summary.RejectedCount++
			continue
		}
		if i > 0 && sample.Timestamp.Equal(lastTimestamp) {
			summary.RejectedCount++
			continue
		}
		lastTimestamp = sample.Timestamp
		values = append(values, sample.Value)
	}

	summary.SampleCount = len(values)
	summary.CoverageRatio = s.coverage(len(values))

	if len(values) == 0 {
		return summary
	}

	max := values[0]
	for _, v := range values {
		if v > max {
			max = v
		}
	}

	summary.Average = calculateAverage(values)
	summary.Max = max

	if len(values) < s.minSamples {
		// Too few points for a meaningful distribution; leave P95 and
		// StdDev flagged as missing rather than computing noise.
		return summary
	}

	sortedValues := make([]float64, len(values))
	copy(sortedValues, values)
	sort.Float64s(sortedValues)

	summary.P95 = calculatePercentile(sortedValues, 95)
	summary.StdDev = calculateStdDev(values)
	summary.Insufficient = false

	return summary
}

// SummarizeAll computes summaries for every metric kind of one server
func (s *Summarizer) SummarizeAll(server string, series map[MetricKind][]MetricSample) map[MetricKind]Summary {
	summaries := make(map[MetricKind]Summary, 3)
	for _, kind := range []MetricKind{MetricCPU, MetricMemory, MetricDisk} {
		summaries[kind] = s.Summarize(server, kind, series[kind])
	}
	return summaries
}

func (s *Summarizer) coverage(present int) float64 {
	if s.interval <= 0 || s.window <= 0 {
		return 0
	}

	expected := float64(s.window) / float64(s.interval)
	if expected <= 0 {
		return 0
	}

	ratio := float64(present) / expected
	if ratio > 1.0 {
		ratio = 1.0
	}
	return ratio
}
