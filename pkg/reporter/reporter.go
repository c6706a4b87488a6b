package reporter

import (
	"time"

	"github.com/opscart/server-rightsizer/pkg/anomaly"
	"github.com/opscart/server-rightsizer/pkg/engine"
	"github.com/opscart/server-rightsizer/pkg/recommender"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatText ReportFormat = "text"
	FormatJSON ReportFormat = "json"
	FormatCSV  ReportFormat = "csv"
)

// Report contains all data from one analysis run
type Report struct {
	GeneratedAt          time.Time
	Results              []engine.ServerResult
	AnomalyReports       []anomaly.ServiceReport
	ServerCount          int
	OversizedCount       int
	UndersizedCount      int
	TotalMonthlySavings  float64
	TotalAnomalies       int
	CriticalAnomalyCount int
}

// Build aggregates run output into a report
func Build(results []engine.ServerResult, anomalies []anomaly.ServiceReport, generatedAt time.Time) *Report {
	report := &Report{
		GeneratedAt:    generatedAt,
		Results:        results,
		AnomalyReports: anomalies,
		ServerCount:    len(results),
	}

	for _, result := range results {
		switch result.Recommendation.Classification {
		case recommender.Oversized:
			report.OversizedCount++
		case recommender.Undersized:
			report.UndersizedCount++
		}
		if result.Projection != nil && result.Projection.MonthlySavings > 0 {
			report.TotalMonthlySavings += result.Projection.MonthlySavings
		}
	}

	for _, serviceReport := range anomalies {
		report.TotalAnomalies += len(serviceReport.Anomalies)
		for _, a := range serviceReport.Anomalies {
			if a.Severity == anomaly.SeverityCritical {
				report.CriticalAnomalyCount++
			}
		}
	}

	return report
}
