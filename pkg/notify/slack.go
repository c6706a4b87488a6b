package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opscart/server-rightsizer/pkg/reporter"
)

// Notifier delivers run summaries to an external channel
type Notifier interface {
	NotifyReport(ctx context.Context, report *reporter.Report) error
	Name() string
}

// SlackNotifier posts run summaries to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *SlackNotifier) Name() string {
	return "slack"
}

type slackPayload struct {
	Text string `json:"text"`
}

// NotifyReport sends a short summary of the run. Delivery failures are
// returned to the caller to log; they never affect the analysis results.
func (n *SlackNotifier) NotifyReport(ctx context.Context, report *reporter.Report) error {
	text := fmt.Sprintf(
		"Rightsizing run %s: %d server(s) analyzed, %d oversized, %d undersized, potential savings $%.2f/month.",
		report.GeneratedAt.Format("2006-01-02"),
		report.ServerCount, report.OversizedCount, report.UndersizedCount,
		report.TotalMonthlySavings,
	)

	if report.TotalAnomalies > 0 {
		text += fmt.Sprintf(" Cost anomalies: %d (%d critical).",
			report.TotalAnomalies, report.CriticalAnomalyCount)
	}

	body, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
