package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/opscart/server-rightsizer/pkg/analyzer"
)

// PrometheusSource collects node-exporter utilization series for servers
type PrometheusSource struct {
	client  v1.API
	url     string
	step    time.Duration
	timeout time.Duration
	verbose bool
}

func NewPrometheusSource(cfg Config, verbose bool) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{
		Address: cfg.PrometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	step := cfg.Step
	if step <= 0 {
		step = 5 * time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &PrometheusSource{
		client:  v1.NewAPI(client),
		url:     cfg.PrometheusURL,
		step:    step,
		timeout: timeout,
		verbose: verbose,
	}, nil
}

func (p *PrometheusSource) Name() string {
	return "prometheus"
}

// GetSamples retrieves CPU, memory, and disk utilization (percent) for one
// server over the analysis window.
func (p *PrometheusSource) GetSamples(ctx context.Context, server string, window time.Duration) (map[analyzer.MetricKind][]analyzer.MetricSample, error) {
	queries := map[analyzer.MetricKind]string{
		analyzer.MetricCPU: fmt.Sprintf(
			`100 - (avg(rate(node_cpu_seconds_total{mode="idle",instance=~"%s.*"}[5m])) * 100)`, server),
		analyzer.MetricMemory: fmt.Sprintf(
			`(1 - (node_memory_MemAvailable_bytes{instance=~"%s.*"} / node_memory_MemTotal_bytes{instance=~"%s.*"})) * 100`, server, server),
		analyzer.MetricDisk: fmt.Sprintf(
			`(1 - (node_filesystem_avail_bytes{instance=~"%s.*",mountpoint="/"} / node_filesystem_size_bytes{instance=~"%s.*",mountpoint="/"})) * 100`, server, server),
	}

	endTime := time.Now()
	startTime := endTime.Add(-window)

	series := make(map[analyzer.MetricKind][]analyzer.MetricSample, len(queries))

	for kind, query := range queries {
		samples, err := p.queryRange(ctx, query, startTime, endTime)
		if err != nil {
			// One missing metric must not sink the server; the summarizer
			// treats an empty series as a legitimate outcome.
			if p.verbose {
				fmt.Printf("[WARN] %s query for %s failed: %v\n", kind, server, err)
			}
			series[kind] = nil
			continue
		}
		series[kind] = samples
	}

	return series, nil
}

func (p *PrometheusSource) queryRange(ctx context.Context, query string, startTime, endTime time.Time) ([]analyzer.MetricSample, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	r := v1.Range{
		Start: startTime,
		End:   endTime,
		Step:  p.step,
	}

	if p.verbose {
		fmt.Printf("[DEBUG] Prometheus query: %s\n", query)
	}

	result, warnings, err := p.client.QueryRange(ctx, query, r)
	if err != nil {
		return nil, fmt.Errorf("prometheus query failed: %w", err)
	}

	if len(warnings) > 0 && p.verbose {
		fmt.Printf("[DEBUG] Prometheus warnings: %v\n", warnings)
	}

	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}

	if len(matrix) == 0 {
		return nil, nil
	}

	var samples []analyzer.MetricSample
	for _, s := range matrix {
		for _, value := range s.Values {
			samples = append(samples, analyzer.MetricSample{
				Timestamp: value.Timestamp.Time(),
				Value:     float64(value.Value),
			})
		}
	}

	return samples, nil
}

// IsAvailable checks if Prometheus is reachable
func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, _, err := p.client.Query(ctx, "up", time.Now())
	return err == nil
}
