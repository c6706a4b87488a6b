package reporter

import (
	"fmt"
	"io"
	"strings"
)

// WriteText writes a human-readable summary of a run
func WriteText(report *Report, writer io.Writer) error {
	fmt.Fprintf(writer, "Analysis run %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(writer, "Servers analyzed: %d (oversized: %d, undersized: %d)\n\n",
		report.ServerCount, report.OversizedCount, report.UndersizedCount)

	for _, result := range report.Results {
		rec := result.Recommendation

		fmt.Fprintf(writer, "[%s] %s (%s)\n", rec.Classification, rec.Server, rec.CurrentInstanceType)

		if rec.RecommendedInstanceType != "" {
			fmt.Fprintf(writer, "  Recommended: %s\n", rec.RecommendedInstanceType)
		}
		fmt.Fprintf(writer, "  Confidence: %.2f\n", rec.Confidence)

		if result.Projection != nil {
			verb := "Savings"
			savings := result.Projection.MonthlySavings
			if savings < 0 {
				verb = "Cost increase"
				savings = -savings
			}
			fmt.Fprintf(writer, "  %s: $%.2f/month ($%.2f/year)\n", verb, savings, 12*savings)
		}

		if len(rec.Rationale) > 0 {
			fmt.Fprintf(writer, "  Reason: %s\n", strings.Join(rec.Rationale, "; "))
		}
		for _, note := range result.Annotations {
			fmt.Fprintf(writer, "  Note: %s\n", note)
		}
		fmt.Fprintln(writer)
	}

	if rightSized := report.ServerCount - report.OversizedCount - report.UndersizedCount; rightSized > 0 {
		fmt.Fprintf(writer, "%d server(s) already right-sized\n", rightSized)
	}
	if report.TotalMonthlySavings > 0 {
		fmt.Fprintf(writer, "Total potential savings: $%.2f/month\n", report.TotalMonthlySavings)
	}

	if len(report.AnomalyReports) > 0 {
		fmt.Fprintf(writer, "\nCost anomalies: %d (%d critical)\n",
			report.TotalAnomalies, report.CriticalAnomalyCount)

		for _, serviceReport := range report.AnomalyReports {
			if serviceReport.Skipped {
				fmt.Fprintf(writer, "  %s: skipped (insufficient baseline history, %d point(s))\n",
					serviceReport.Service, serviceReport.Baseline.SampleCount)
				continue
			}
			for _, a := range serviceReport.Anomalies {
				fmt.Fprintf(writer, "  [%s] %s %s: $%.2f vs baseline $%.2f (z=%.2f)\n",
					strings.ToUpper(string(a.Severity)), a.Service,
					a.Date.Format("2006-01-02"), a.ObservedValue, a.BaselineMean, a.ZScore)
			}
		}
	}

	return nil
}
