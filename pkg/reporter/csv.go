package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// WriteCSV writes the recommendations of a report as CSV
func WriteCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)
	defer w.Flush()

	header := []string{
		"Server",
		"Classification",
		"Current Instance",
		"Recommended Instance",
		"Confidence",
		"Monthly Savings ($)",
		"Yearly Savings ($)",
		"Contention Events",
		"Rationale",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range report.Results {
		rec := result.Recommendation

		monthly, yearly := "", ""
		if result.Projection != nil {
			monthly = fmt.Sprintf("%.2f", result.Projection.MonthlySavings)
			yearly = fmt.Sprintf("%.2f", result.Projection.YearlySavings)
		}

		row := []string{
			rec.Server,
			string(rec.Classification),
			rec.CurrentInstanceType,
			rec.RecommendedInstanceType,
			fmt.Sprintf("%.2f", rec.Confidence),
			monthly,
			yearly,
			fmt.Sprintf("%d", len(result.Contention)),
			strings.Join(rec.Rationale, "; "),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Write([]string{})
	w.Write([]string{"SUMMARY"})
	w.Write([]string{"Total Servers", fmt.Sprintf("%d", report.ServerCount)})
	w.Write([]string{"Oversized", fmt.Sprintf("%d", report.OversizedCount)})
	w.Write([]string{"Undersized", fmt.Sprintf("%d", report.UndersizedCount)})
	w.Write([]string{"Total Monthly Savings", fmt.Sprintf("$%.2f", report.TotalMonthlySavings)})

	return nil
}

// WriteAnomaliesCSV writes detected cost anomalies as CSV
func WriteAnomaliesCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)
	defer w.Flush()

	header := []string{
		"Service",
		"Date",
		"Observed ($)",
		"Baseline Mean ($)",
		"Baseline StdDev",
		"Z-Score",
		"Severity",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, serviceReport := range report.AnomalyReports {
		for _, a := range serviceReport.Anomalies {
			row := []string{
				a.Service,
				a.Date.Format("2006-01-02"),
				fmt.Sprintf("%.2f", a.ObservedValue),
				fmt.Sprintf("%.2f", a.BaselineMean),
				fmt.Sprintf("%.2f", a.BaselineStdDev),
				fmt.Sprintf("%.2f", a.ZScore),
				string(a.Severity),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	return nil
}
