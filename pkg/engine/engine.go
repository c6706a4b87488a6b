package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/opscart/server-rightsizer/pkg/analyzer"
	"github.com/opscart/server-rightsizer/pkg/anomaly"
	"github.com/opscart/server-rightsizer/pkg/catalog"
	"github.com/opscart/server-rightsizer/pkg/config"
	"github.com/opscart/server-rightsizer/pkg/pricing"
	"github.com/opscart/server-rightsizer/pkg/recommender"
)

// ServerInput is the fully-materialized input for one server's analysis
type ServerInput struct {
	Server       string
	InstanceType string
	Samples      map[analyzer.MetricKind][]analyzer.MetricSample
}

// ServerResult bundles everything the pipeline produced for one server
type ServerResult struct {
	Server         string
	Summaries      map[analyzer.MetricKind]analyzer.Summary
	Contention     []analyzer.ContentionEvent
	Recommendation recommender.Recommendation
	Projection     *pricing.Projection

	// Annotations carries per-server issues (e.g. pricing gaps) without
	// failing the run for everyone else.
	Annotations []string
}

// Engine wires the analysis pipeline together. All computation is pure and
// synchronous; the engine fetches nothing and persists nothing.
type Engine struct {
	summarizer *analyzer.Summarizer
	detector   *analyzer.ContentionDetector
	classifier *recommender.Classifier
	anomalies  *anomaly.Detector
	provider   pricing.Provider
}

// New builds an engine from configuration and the instance catalog
func New(cfg *config.Config, cat *catalog.Catalog) (*Engine, error) {
	classifier, err := recommender.New(cat, recommender.Thresholds{
		CPUHigh:      cfg.CPUHigh,
		MemHigh:      cfg.MemHigh,
		CPULow:       cfg.CPULow,
		MemLow:       cfg.MemLow,
		SafetyMargin: cfg.SafetyMargin,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	pressure := map[analyzer.MetricKind]float64{
		analyzer.MetricCPU:    cfg.CPUPressure,
		analyzer.MetricMemory: cfg.MemPressure,
		analyzer.MetricDisk:   cfg.DiskPressure,
	}

	return &Engine{
		summarizer: analyzer.NewSummarizer(cfg.MinSamples, cfg.SampleInterval, cfg.AnalysisWindow),
		detector:   analyzer.NewContentionDetector(pressure, cfg.ContentionDurationMin),
		classifier: classifier,
		anomalies: anomaly.NewDetector(
			anomaly.WithWindows(cfg.AnomalyBaselineDays, cfg.AnomalyDetectionDays),
			anomaly.WithSigmas(cfg.AnomalyWarningSigma, cfg.AnomalyCriticalSigma),
			anomaly.WithMinBaselinePoints(cfg.MinBaselinePoints),
		),
		provider: pricing.NewCatalogProvider(cat),
	}, nil
}

// AnalyzeServers runs the full rightsizing pipeline for every server.
// Servers are independent, so each gets its own goroutine writing into its
// own slot of the result slice; output order matches input order regardless
// of scheduling. A server with bad data annotates its own result and never
// aborts the run.
func (e *Engine) AnalyzeServers(inputs []ServerInput) []ServerResult {
	results := make([]ServerResult, len(inputs))

	var wg sync.WaitGroup
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.analyzeServer(inputs[i])
		}(i)
	}
	wg.Wait()

	return results
}

func (e *Engine) analyzeServer(in ServerInput) ServerResult {
	result := ServerResult{Server: in.Server}

	result.Summaries = e.summarizer.SummarizeAll(in.Server, in.Samples)
	result.Contention = e.detector.DetectAll(in.Server, in.Samples)

	result.Recommendation = e.classifier.Classify(recommender.Input{
		Server:       in.Server,
		InstanceType: in.InstanceType,
		CPU:          result.Summaries[analyzer.MetricCPU],
		Memory:       result.Summaries[analyzer.MetricMemory],
		Disk:         result.Summaries[analyzer.MetricDisk],
		Contention:   result.Contention,
	})

	projection, err := pricing.ProjectRecommendation(e.provider, result.Recommendation)
	if err != nil {
		result.Annotations = append(result.Annotations,
			fmt.Sprintf("cost projection unavailable: %v", err))
	} else {
		result.Projection = projection
	}

	for kind, summary := range result.Summaries {
		if summary.RejectedCount > 0 {
			result.Annotations = append(result.Annotations,
				fmt.Sprintf("%s: %d malformed sample(s) rejected", kind, summary.RejectedCount))
		}
	}

	return result
}

// DetectAnomalies runs anomaly detection for every service. Services are
// independent; each goroutine fills its own slot and the report order is the
// sorted service order, stable across runs.
func (e *Engine) DetectAnomalies(historyByService, currentByService map[string][]anomaly.DailyCost) []anomaly.ServiceReport {
	services := sortedKeys(historyByService)

	reports := make([]anomaly.ServiceReport, len(services))

	var wg sync.WaitGroup
	for i, service := range services {
		wg.Add(1)
		go func(i int, service string) {
			defer wg.Done()
			reports[i] = e.anomalies.Detect(service, historyByService[service], currentByService[service])
		}(i, service)
	}
	wg.Wait()

	return reports
}

func sortedKeys(m map[string][]anomaly.DailyCost) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
