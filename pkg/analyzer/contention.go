package analyzer

import (
	"sort"
	"time"
)

// DefaultPressureThresholds are the per-metric saturation levels above which
// a sample counts toward a contention run.
var DefaultPressureThresholds = map[MetricKind]float64{
	MetricCPU:    90,
	MetricMemory: 90,
	MetricDisk:   90,
}

// ContentionDetector flags sustained resource-pressure windows.
// It holds configuration only; Detect is stateless across calls.
type ContentionDetector struct {
	thresholds  map[MetricKind]float64
	minDuration time.Duration
}

// NewContentionDetector creates a detector. thresholds may be nil to use the
// defaults; minDuration is the minimum sustained duration for a run to count.
func NewContentionDetector(thresholds map[MetricKind]float64, minDuration time.Duration) *ContentionDetector {
	if thresholds == nil {
		thresholds = DefaultPressureThresholds
	}
	return &ContentionDetector{
		thresholds:  thresholds,
		minDuration: minDuration,
	}
}

// Detect finds all qualifying contention runs in one sample series.
// A single pass tracks the current run of consecutive above-threshold
// samples; on drop below threshold the run is emitted if it lasted at least
// the minimum duration, otherwise discarded as a transient spike. A run
// still active when the data ends is emitted with the last sample timestamp
// as the window end.
func (d *ContentionDetector) Detect(server string, metric MetricKind, samples []MetricSample) []ContentionEvent {
	threshold, ok := d.thresholds[metric]
	if !ok || len(samples) == 0 {
		return nil
	}

	sorted := make([]MetricSample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var events []ContentionEvent
	var runStart, runEnd time.Time
	var peak float64
	inRun := false

	flush := func() {
		if !inRun {
			return
		}
		duration := runEnd.Sub(runStart)
		if duration >= d.minDuration {
			events = append(events, ContentionEvent{
				Server:      server,
				Metric:      metric,
				WindowStart: runStart,
				WindowEnd:   runEnd,
				PeakValue:   peak,
				Duration:    duration,
			})
		}
		inRun = false
	}

	for _, sample := range sorted {
		if sample.Value >= threshold {
			if !inRun {
				inRun = true
				runStart = sample.Timestamp
				peak = sample.Value
			} else if sample.Value > peak {
				peak = sample.Value
			}
			runEnd = sample.Timestamp
			continue
		}
		flush()
	}

	// Ongoing contention at end of data must not be silently dropped.
	flush()

	return events
}

// DetectAll runs detection over every metric kind of one server
func (d *ContentionDetector) DetectAll(server string, series map[MetricKind][]MetricSample) []ContentionEvent {
	var events []ContentionEvent
	for _, kind := range []MetricKind{MetricCPU, MetricMemory, MetricDisk} {
		events = append(events, d.Detect(server, kind, series[kind])...)
	}
	return events
}
