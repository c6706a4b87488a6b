package anomaly

import (
	"math"
	"sort"
	"time"
)

// Severity of a detected cost anomaly
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// DailyCost is one day's total spend for a service
type DailyCost struct {
	Date time.Time
	Cost float64
}

// Baseline is the statistical reference for a service's historical spend
type Baseline struct {
	Service     string
	Mean        float64
	StdDev      float64
	SampleCount int
	WindowStart time.Time
	WindowEnd   time.Time
}

// Anomaly is a single spend deviation beyond the configured sigma threshold.
// It carries its baseline and z-score for explainability.
type Anomaly struct {
	Service        string
	Date           time.Time
	ObservedValue  float64
	BaselineMean   float64
	BaselineStdDev float64
	ZScore         float64
	Severity       Severity
	DetectedAt     time.Time
}

// ServiceReport groups one service's baseline with its detected anomalies
type ServiceReport struct {
	Service   string
	Baseline  Baseline
	Anomalies []Anomaly
	Skipped   bool // insufficient baseline history
}

const (
	DefaultBaselineDays      = 30
	DefaultDetectionDays     = 7
	DefaultMinBaselinePoints = 7
	DefaultWarningSigma      = 2.0
	DefaultCriticalSigma     = 3.0
)

// Detector flags cost values deviating from a per-service baseline.
// The clock is injectable so DetectedAt stamping stays isolated from the
// decision logic and tests are deterministic.
type Detector struct {
	baselineDays      int
	detectionDays     int
	minBaselinePoints int
	warningSigma      float64
	criticalSigma     float64
	now               func() time.Time
}

// Option configures a Detector
type Option func(*Detector)

func WithWindows(baselineDays, detectionDays int) Option {
	return func(d *Detector) {
		d.baselineDays = baselineDays
		d.detectionDays = detectionDays
	}
}

func WithSigmas(warning, critical float64) Option {
	return func(d *Detector) {
		d.warningSigma = warning
		d.criticalSigma = critical
	}
}

func WithMinBaselinePoints(n int) Option {
	return func(d *Detector) {
		d.minBaselinePoints = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

// NewDetector creates a detector with the standard windows and thresholds
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		baselineDays:      DefaultBaselineDays,
		detectionDays:     DefaultDetectionDays,
		minBaselinePoints: DefaultMinBaselinePoints,
		warningSigma:      DefaultWarningSigma,
		criticalSigma:     DefaultCriticalSigma,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BuildBaseline computes mean and population stddev over the baseline window.
// Returns ok=false when there is not enough history for a reliable baseline;
// such services are skipped, not flagged.
func (d *Detector) BuildBaseline(service string, history []DailyCost) (Baseline, bool) {
	if len(history) < d.minBaselinePoints {
		return Baseline{Service: service, SampleCount: len(history)}, false
	}

	sorted := make([]DailyCost, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	// Only the trailing baseline window contributes.
	if len(sorted) > d.baselineDays {
		sorted = sorted[len(sorted)-d.baselineDays:]
	}

	var sum float64
	for _, day := range sorted {
		sum += day.Cost
	}
	mean := sum / float64(len(sorted))

	var sumSquaredDiff float64
	for _, day := range sorted {
		diff := day.Cost - mean
		sumSquaredDiff += diff * diff
	}
	stdDev := math.Sqrt(sumSquaredDiff / float64(len(sorted)))

	return Baseline{
		Service:     service,
		Mean:        mean,
		StdDev:      stdDev,
		SampleCount: len(sorted),
		WindowStart: sorted[0].Date,
		WindowEnd:   sorted[len(sorted)-1].Date,
	}, true
}

// Detect checks each detection-window value against the baseline.
// A zero-stddev baseline (constant historical spend) is a guarded case: any
// non-zero deviation is Critical, and the z-score formula is never evaluated
// so there is no division by zero.
func (d *Detector) Detect(service string, history, current []DailyCost) ServiceReport {
	report := ServiceReport{Service: service}

	baseline, ok := d.BuildBaseline(service, history)
	report.Baseline = baseline
	if !ok {
		report.Skipped = true
		return report
	}

	window := current
	if len(window) > d.detectionDays {
		window = window[len(window)-d.detectionDays:]
	}

	detectedAt := d.now()

	for _, day := range window {
		anomaly, found := d.check(baseline, day)
		if found {
			anomaly.DetectedAt = detectedAt
			report.Anomalies = append(report.Anomalies, anomaly)
		}
	}

	return report
}

func (d *Detector) check(baseline Baseline, day DailyCost) (Anomaly, bool) {
	anomaly := Anomaly{
		Service:        baseline.Service,
		Date:           day.Date,
		ObservedValue:  day.Cost,
		BaselineMean:   baseline.Mean,
		BaselineStdDev: baseline.StdDev,
	}

	if baseline.StdDev == 0 {
		if day.Cost == baseline.Mean {
			return Anomaly{}, false
		}
		anomaly.Severity = SeverityCritical
		return anomaly, true
	}

	z := (day.Cost - baseline.Mean) / baseline.StdDev
	anomaly.ZScore = z

	switch {
	case math.Abs(z) >= d.criticalSigma:
		anomaly.Severity = SeverityCritical
	case math.Abs(z) >= d.warningSigma:
		anomaly.Severity = SeverityWarning
	default:
		return Anomaly{}, false
	}

	return anomaly, true
}

// DetectAll runs detection for every service and returns reports ordered by
// service name so output is reproducible across runs.
func (d *Detector) DetectAll(historyByService, currentByService map[string][]DailyCost) []ServiceReport {
	services := make([]string, 0, len(historyByService))
	for service := range historyByService {
		services = append(services, service)
	}
	sort.Strings(services)

	reports := make([]ServiceReport, 0, len(services))
	for _, service := range services {
		reports = append(reports, d.Detect(service, historyByService[service], currentByService[service]))
	}
	return reports
}
