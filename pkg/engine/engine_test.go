package engine

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/opscart/server-rightsizer/pkg/analyzer"
	"github.com/opscart/server-rightsizer/pkg/anomaly"
	"github.com/opscart/server-rightsizer/pkg/catalog"
	"github.com/opscart/server-rightsizer/pkg/config"
	"github.com/opscart/server-rightsizer/pkg/recommender"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()

	cat, err := catalog.New([]catalog.Entry{
		{InstanceType: "m5.large", VCPU: 2, MemoryGB: 8, HourlyPrice: 0.096, Family: "m5"},
		{InstanceType: "m5.xlarge", VCPU: 4, MemoryGB: 16, HourlyPrice: 0.192, Family: "m5"},
		{InstanceType: "m5.2xlarge", VCPU: 8, MemoryGB: 32, HourlyPrice: 0.384, Family: "m5"},
	})
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}

	e, err := New(config.NewConfig(), cat)
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	return e
}

func flatSeries(value float64, count int) []analyzer.MetricSample {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]analyzer.MetricSample, count)
	for i := range samples {
		samples[i] = analyzer.MetricSample{
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Value:     value,
		}
	}
	return samples
}

func serverInput(name, instanceType string, cpu, mem float64) ServerInput {
	return ServerInput{
		Server:       name,
		InstanceType: instanceType,
		Samples: map[analyzer.MetricKind][]analyzer.MetricSample{
			analyzer.MetricCPU:    flatSeries(cpu, 50),
			analyzer.MetricMemory: flatSeries(mem, 50),
			analyzer.MetricDisk:   flatSeries(30, 50),
		},
	}
}

func TestAnalyzeServersEndToEnd(t *testing.T) {
	e := testEngine(t)

	results := e.AnalyzeServers([]ServerInput{
		serverInput("idle-1", "m5.xlarge", 20, 25),
		serverInput("hot-1", "m5.xlarge", 95, 60),
		serverInput("steady-1", "m5.xlarge", 60, 65),
	})

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	idle := results[0]
	if idle.Recommendation.Classification != recommender.Oversized {
		t.Errorf("idle-1: expected OVERSIZED, got %s", idle.Recommendation.Classification)
	}
	if idle.Projection == nil {
		t.Error("idle-1: expected a cost projection")
	} else if idle.Projection.MonthlySavings <= 0 {
		t.Errorf("idle-1: expected positive savings, got %v", idle.Projection.MonthlySavings)
	}

	hot := results[1]
	if hot.Recommendation.Classification != recommender.Undersized {
		t.Errorf("hot-1: expected UNDERSIZED, got %s", hot.Recommendation.Classification)
	}
	if hot.Projection == nil {
		t.Error("hot-1: expected a cost projection")
	} else if hot.Projection.MonthlySavings >= 0 {
		t.Errorf("hot-1: expected negative savings for upsize, got %v", hot.Projection.MonthlySavings)
	}

	steady := results[2]
	if steady.Recommendation.Classification != recommender.RightSized {
		t.Errorf("steady-1: expected RIGHT_SIZED, got %s", steady.Recommendation.Classification)
	}
	if steady.Projection != nil {
		t.Errorf("steady-1: expected no projection, got %+v", steady.Projection)
	}
}

func TestAnalyzeServersOutputOrderMatchesInput(t *testing.T) {
	e := testEngine(t)

	inputs := make([]ServerInput, 20)
	for i := range inputs {
		inputs[i] = serverInput(fmt.Sprintf("server-%02d", i), "m5.xlarge", 60, 65)
	}

	results := e.AnalyzeServers(inputs)

	for i, r := range results {
		if r.Server != inputs[i].Server {
			t.Errorf("Position %d: expected %s, got %s", i, inputs[i].Server, r.Server)
		}
	}
}

func TestAnalyzeServersDeterministicAcrossRuns(t *testing.T) {
	e := testEngine(t)
	inputs := []ServerInput{
		serverInput("idle-1", "m5.xlarge", 20, 25),
		serverInput("hot-1", "m5.xlarge", 95, 60),
	}

	first := e.AnalyzeServers(inputs)
	second := e.AnalyzeServers(inputs)

	if !reflect.DeepEqual(first, second) {
		t.Error("Identical inputs produced different results across runs")
	}
}

func TestAnalyzeServersBadServerDoesNotAbortRun(t *testing.T) {
	e := testEngine(t)

	empty := ServerInput{
		Server:       "silent-1",
		InstanceType: "m5.xlarge",
		Samples:      map[analyzer.MetricKind][]analyzer.MetricSample{},
	}

	results := e.AnalyzeServers([]ServerInput{
		empty,
		serverInput("idle-1", "m5.xlarge", 20, 25),
	})

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	silent := results[0]
	if silent.Recommendation.Classification != recommender.RightSized {
		t.Errorf("silent-1: expected RIGHT_SIZED with no data, got %s",
			silent.Recommendation.Classification)
	}
	if silent.Recommendation.Confidence != 0 {
		t.Errorf("silent-1: expected zero confidence, got %v", silent.Recommendation.Confidence)
	}

	if results[1].Recommendation.Classification != recommender.Oversized {
		t.Errorf("idle-1: expected OVERSIZED despite sibling failure, got %s",
			results[1].Recommendation.Classification)
	}
}

func TestAnalyzeServersAnnotatesRejectedSamples(t *testing.T) {
	e := testEngine(t)

	in := serverInput("web-1", "m5.xlarge", 60, 65)
	in.Samples[analyzer.MetricCPU] = append(in.Samples[analyzer.MetricCPU],
		analyzer.MetricSample{
			Timestamp: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			Value:     -5,
		})

	results := e.AnalyzeServers([]ServerInput{in})

	found := false
	for _, note := range results[0].Annotations {
		if note == "cpu: 1 malformed sample(s) rejected" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected rejection annotation, got %v", results[0].Annotations)
	}
}

func TestDetectAnomaliesParallelOrdering(t *testing.T) {
	e := testEngine(t)

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	history := make(map[string][]anomaly.DailyCost)
	current := make(map[string][]anomaly.DailyCost)
	for _, service := range []string{"storage", "api", "compute", "network"} {
		days := make([]anomaly.DailyCost, 14)
		for i := range days {
			cost := 90.0
			if i%2 == 1 {
				cost = 110.0
			}
			days[i] = anomaly.DailyCost{Date: start.AddDate(0, 0, i), Cost: cost}
		}
		history[service] = days
		current[service] = []anomaly.DailyCost{{Date: start.AddDate(0, 0, 14), Cost: 100}}
	}
	current["api"] = []anomaly.DailyCost{{Date: start.AddDate(0, 0, 14), Cost: 140}}

	reports := e.DetectAnomalies(history, current)

	want := []string{"api", "compute", "network", "storage"}
	if len(reports) != len(want) {
		t.Fatalf("Expected %d reports, got %d", len(want), len(reports))
	}
	for i, service := range want {
		if reports[i].Service != service {
			t.Errorf("Position %d: expected %s, got %s", i, service, reports[i].Service)
		}
	}
	if len(reports[0].Anomalies) != 1 {
		t.Errorf("Expected api spike to be flagged, got %d anomalies", len(reports[0].Anomalies))
	}
}
