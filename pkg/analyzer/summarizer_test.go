package analyzer

import (
	"math"
	"testing"
	"time"
)

func makeSamples(values []float64, interval time.Duration) []MetricSample {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]MetricSample, len(values))
	for i, v := range values {
		samples[i] = MetricSample{
			Timestamp: start.Add(time.Duration(i) * interval),
			Value:     v,
		}
	}
	return samples
}

func TestSummarizeBasicStats(t *testing.T) {
	s := NewSummarizer(3, time.Minute, 10*time.Minute)
	samples := makeSamples([]float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, time.Minute)

	summary := s.Summarize("web-1", MetricCPU, samples)

	if summary.SampleCount != 10 {
		t.Fatalf("Expected 10 samples, got %d", summary.SampleCount)
	}
	if summary.Insufficient {
		t.Error("Expected sufficient data with 10 samples")
	}
	if summary.Average != 55 {
		t.Errorf("Expected average 55, got %v", summary.Average)
	}
	if summary.Max != 100 {
		t.Errorf("Expected max 100, got %v", summary.Max)
	}
	if math.Abs(summary.P95-95.5) > 1e-9 {
		t.Errorf("Expected p95 95.5, got %v", summary.P95)
	}
	if summary.CoverageRatio != 1.0 {
		t.Errorf("Expected full coverage, got %v", summary.CoverageRatio)
	}
}

func TestSummarizeUnorderedInput(t *testing.T) {
	s := NewSummarizer(3, time.Minute, 5*time.Minute)
	samples := makeSamples([]float64{10, 20, 30, 40, 50}, time.Minute)

	// Shuffle deterministically: callers may not guarantee order.
	shuffled := []MetricSample{samples[3], samples[0], samples[4], samples[2], samples[1]}

	summary := s.Summarize("web-1", MetricCPU, shuffled)

	if summary.SampleCount != 5 {
		t.Fatalf("Expected 5 samples, got %d", summary.SampleCount)
	}
	if summary.Max != 50 {
		t.Errorf("Expected max 50, got %v", summary.Max)
	}
	if summary.Average != 30 {
		t.Errorf("Expected average 30, got %v", summary.Average)
	}
}

func TestSummarizeEmptySeries(t *testing.T) {
	s := NewSummarizer(3, time.Minute, 10*time.Minute)

	summary := s.Summarize("web-1", MetricDisk, nil)

	if summary.SampleCount != 0 {
		t.Errorf("Expected 0 samples, got %d", summary.SampleCount)
	}
	if !summary.Insufficient {
		t.Error("Empty series must be flagged insufficient")
	}
	if summary.HasData() {
		t.Error("Empty series must report no data")
	}
	if summary.P95Known() {
		t.Error("Empty series must not claim a known p95")
	}
}

func TestSummarizeBelowMinimum(t *testing.T) {
	s := NewSummarizer(3, time.Minute, 10*time.Minute)
	samples := makeSamples([]float64{80, 90}, time.Minute)

	summary := s.Summarize("web-1", MetricCPU, samples)

	if summary.SampleCount != 2 {
		t.Fatalf("Expected 2 samples, got %d", summary.SampleCount)
	}
	if !summary.Insufficient {
		t.Error("Two samples must be flagged insufficient")
	}
	if summary.P95Known() {
		t.Error("P95 must be treated as missing below the minimum")
	}
	// Average and max still computed for any sample_count >= 1.
	if summary.Average != 85 {
		t.Errorf("Expected average 85, got %v", summary.Average)
	}
	if summary.Max != 90 {
		t.Errorf("Expected max 90, got %v", summary.Max)
	}
}

func TestSummarizeRejectsMalformedSamples(t *testing.T) {
	s := NewSummarizer(3, time.Minute, 10*time.Minute)
	samples := makeSamples([]float64{10, 20, 30, 40, 50}, time.Minute)

	// Negative value and a duplicate timestamp are rejected individually.
	samples = append(samples, MetricSample{Timestamp: samples[0].Timestamp.Add(10 * time.Minute), Value: -5})
	samples = append(samples, MetricSample{Timestamp: samples[2].Timestamp, Value: 999})

	summary := s.Summarize("web-1", MetricCPU, samples)

	if summary.RejectedCount != 2 {
		t.Errorf("Expected 2 rejected samples, got %d", summary.RejectedCount)
	}
	if summary.SampleCount != 5 {
		t.Errorf("Expected 5 valid samples, got %d", summary.SampleCount)
	}
	if summary.Max != 50 {
		t.Errorf("Rejected samples must not contribute, max = %v", summary.Max)
	}
}

func TestSummarizeCoverageRatio(t *testing.T) {
	// 5 samples present where the window expects 10.
	s := NewSummarizer(3, time.Minute, 10*time.Minute)
	samples := makeSamples([]float64{10, 20, 30, 40, 50}, time.Minute)

	summary := s.Summarize("web-1", MetricCPU, samples)

	if summary.CoverageRatio != 0.5 {
		t.Errorf("Expected coverage 0.5, got %v", summary.CoverageRatio)
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	s := NewSummarizer(3, time.Minute, 10*time.Minute)
	samples := makeSamples([]float64{31, 45, 12, 90, 66, 24, 58}, time.Minute)

	first := s.Summarize("web-1", MetricCPU, samples)
	second := s.Summarize("web-1", MetricCPU, samples)

	if first != second {
		t.Errorf("Identical input must produce identical summaries: %+v vs %+v", first, second)
	}
}
