package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/opscart/server-rightsizer/pkg/analyzer"
	"github.com/opscart/server-rightsizer/pkg/anomaly"
	"github.com/opscart/server-rightsizer/pkg/catalog"
	"github.com/opscart/server-rightsizer/pkg/config"
	"github.com/opscart/server-rightsizer/pkg/datasource"
	"github.com/opscart/server-rightsizer/pkg/engine"
	"github.com/opscart/server-rightsizer/pkg/notify"
	"github.com/opscart/server-rightsizer/pkg/reporter"
	"github.com/opscart/server-rightsizer/pkg/scheduler"
	"github.com/opscart/server-rightsizer/pkg/storage"
)

var (
	// Analyze flags
	servers      []string
	catalogPath  string
	outputFormat string
	saveResults  bool
	sendNotify   bool
	verbose      bool

	// History command vars
	historyLimit int

	// Schedule command vars
	cronSpec string

	// Global config
	cfg   *config.Config
	store storage.Store
)

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}

func main() {
	cfg = config.NewConfig()

	var rootCmd = &cobra.Command{
		Use:   "rightsize",
		Short: "Server rightsizing and cost anomaly analyzer",
		Long:  `Analyze server utilization metrics, produce rightsizing recommendations with projected savings, and detect anomalous cost patterns.`,
		RunE:  runAnalyze,
	}

	rootCmd.Flags().StringArrayVarP(&servers, "server", "s", nil, "Server to analyze as name=instance_type (repeatable)")
	rootCmd.Flags().StringVar(&catalogPath, "catalog", "", "Instance catalog YAML (default from INSTANCE_CATALOG)")
	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, csv")
	rootCmd.Flags().BoolVar(&saveResults, "save", false, "Save recommendations to database")
	rootCmd.Flags().BoolVar(&sendNotify, "notify", false, "Send run summary to Slack webhook")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	anomaliesCmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Detect cost anomalies from stored cost history",
		RunE:  runAnomalies,
	}
	anomaliesCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, csv")
	anomaliesCmd.Flags().BoolVar(&saveResults, "save", false, "Save anomalies to database")

	historyCmd := &cobra.Command{
		Use:   "history <server>",
		Short: "View past recommendations for a server",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of recommendations to show")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run analysis on a recurring cron schedule",
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().StringVar(&cronSpec, "cron", "0 6 * * *", "Cron spec for recurring runs")
	scheduleCmd.Flags().StringArrayVarP(&servers, "server", "s", nil, "Server to analyze as name=instance_type (repeatable)")
	scheduleCmd.Flags().StringVar(&catalogPath, "catalog", "", "Instance catalog YAML")
	scheduleCmd.Flags().BoolVar(&saveResults, "save", true, "Save recommendations to database")
	scheduleCmd.Flags().BoolVar(&sendNotify, "notify", true, "Send run summaries to Slack webhook")

	rootCmd.AddCommand(anomaliesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(scheduleCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initStorage() error {
	if store != nil {
		return nil
	}

	var err error
	store, err = storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	return nil
}

// closeStorage resets the global so a later run (e.g. the next scheduled
// tick) reconnects instead of reusing a closed pool.
func closeStorage() {
	if store != nil {
		store.Close()
		store = nil
	}
}

// parseServers converts name=instance_type flags into engine inputs
func parseServers(args []string) ([]engine.ServerInput, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one --server name=instance_type is required")
	}

	inputs := make([]engine.ServerInput, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid --server value %q, expected name=instance_type", arg)
		}
		inputs = append(inputs, engine.ServerInput{
			Server:       parts[0],
			InstanceType: parts[1],
		})
	}

	return inputs, nil
}

func buildEngine() (*engine.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	path := catalogPath
	if path == "" {
		path = cfg.CatalogPath
	}

	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load instance catalog: %w", err)
	}
	logVerbose("loaded %d catalog entries from %s", cat.Size(), path)

	return engine.New(cfg, cat)
}

func collectSamples(ctx context.Context, inputs []engine.ServerInput) error {
	source, err := datasource.NewPrometheusSource(datasource.Config{
		PrometheusURL: cfg.PrometheusURL,
		Step:          cfg.SampleInterval,
	}, verbose)
	if err != nil {
		return err
	}

	if !source.IsAvailable(ctx) {
		return fmt.Errorf("prometheus at %s is not reachable", cfg.PrometheusURL)
	}

	for i := range inputs {
		samples, err := source.GetSamples(ctx, inputs[i].Server, cfg.AnalysisWindow)
		if err != nil {
			// Scoped failure: this server gets empty series and an
			// insufficient-data recommendation instead of failing the run.
			fmt.Printf("[WARN] metrics for %s unavailable: %v\n", inputs[i].Server, err)
			samples = map[analyzer.MetricKind][]analyzer.MetricSample{}
		}
		inputs[i].Samples = samples
		logVerbose("collected %d cpu samples for %s", len(samples[analyzer.MetricCPU]), inputs[i].Server)
	}

	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	inputs, err := parseServers(servers)
	if err != nil {
		return err
	}

	eng, err := buildEngine()
	if err != nil {
		return err
	}

	if err := collectSamples(ctx, inputs); err != nil {
		return err
	}

	results := eng.AnalyzeServers(inputs)
	report := reporter.Build(results, nil, time.Now())

	if err := writeReport(report); err != nil {
		return err
	}

	if saveResults {
		if err := initStorage(); err != nil {
			return err
		}
		defer closeStorage()

		runID := uuid.New().String()
		for i := range results {
			if err := store.SaveResult(ctx, runID, &results[i]); err != nil {
				return fmt.Errorf("failed to save result for %s: %w", results[i].Server, err)
			}
		}
		logVerbose("saved %d recommendations under run %s", len(results), runID)
	}

	if sendNotify && cfg.SlackWebhookURL != "" {
		notifier := notify.NewSlackNotifier(cfg.SlackWebhookURL)
		if err := notifier.NotifyReport(ctx, report); err != nil {
			fmt.Printf("[WARN] notification failed: %v\n", err)
		}
	}

	return nil
}

func runAnomalies(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, err := buildEngine()
	if err != nil {
		return err
	}

	if err := initStorage(); err != nil {
		return err
	}
	defer closeStorage()

	services, err := store.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}
	if len(services) == 0 {
		fmt.Println("No cost history recorded")
		return nil
	}

	historyByService := make(map[string][]anomaly.DailyCost, len(services))
	currentByService := make(map[string][]anomaly.DailyCost, len(services))

	for _, service := range services {
		costs, err := store.GetDailyCosts(ctx, service, cfg.AnomalyBaselineDays+cfg.AnomalyDetectionDays)
		if err != nil {
			fmt.Printf("[WARN] cost history for %s unavailable: %v\n", service, err)
			continue
		}

		split := len(costs) - cfg.AnomalyDetectionDays
		if split < 0 {
			split = 0
		}
		historyByService[service] = costs[:split]
		currentByService[service] = costs[split:]
	}

	anomalyReports := eng.DetectAnomalies(historyByService, currentByService)
	report := reporter.Build(nil, anomalyReports, time.Now())

	if err := writeReport(report); err != nil {
		return err
	}

	if saveResults {
		for _, serviceReport := range anomalyReports {
			for i := range serviceReport.Anomalies {
				if err := store.SaveAnomaly(ctx, &serviceReport.Anomalies[i]); err != nil {
					return fmt.Errorf("failed to save anomaly for %s: %w", serviceReport.Service, err)
				}
			}
		}
	}

	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	server := args[0]

	if err := initStorage(); err != nil {
		return err
	}
	defer closeStorage()

	recommendations, err := store.ListRecommendations(ctx, server, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list recommendations: %w", err)
	}

	if len(recommendations) == 0 {
		fmt.Printf("No recommendations for %s\n", server)
		return nil
	}

	for _, rec := range recommendations {
		fmt.Printf("%s  [%s] %s -> %s  confidence %.2f  $%.2f/month\n",
			rec.CreatedAt.Format("2006-01-02 15:04"),
			rec.Classification, rec.CurrentInstanceType,
			orDash(rec.RecommendedInstanceType),
			rec.Confidence, rec.MonthlySavings)
	}

	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if _, err := parseServers(servers); err != nil {
		return err
	}

	sched := scheduler.New(verbose)

	// One sequential job: the commands share the storage handle, so they
	// must not run concurrently.
	if err := sched.Add(cronSpec, "analysis", func() error {
		if err := runAnalyze(cmd, nil); err != nil {
			return err
		}
		return runAnomalies(cmd, nil)
	}); err != nil {
		return err
	}

	sched.Start()
	fmt.Printf("Scheduler started with spec %q, press Ctrl+C to stop\n", cronSpec)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sched.Stop()
	return nil
}

func writeReport(report *reporter.Report) error {
	switch reporter.ReportFormat(outputFormat) {
	case reporter.FormatJSON:
		return reporter.WriteJSON(report, os.Stdout)
	case reporter.FormatCSV:
		if len(report.Results) > 0 {
			return reporter.WriteCSV(report, os.Stdout)
		}
		return reporter.WriteAnomaliesCSV(report, os.Stdout)
	default:
		return reporter.WriteText(report, os.Stdout)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
