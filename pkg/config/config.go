package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	// Metrics source
	PrometheusURL  string
	AnalysisWindow time.Duration
	SampleInterval time.Duration

	// Storage
	StorageEnabled bool
	DatabaseURL    string

	// Reference data
	CatalogPath string

	// Classification thresholds (utilization percentages)
	CPUHigh float64
	MemHigh float64
	CPULow  float64
	MemLow  float64

	// Contention
	CPUPressure           float64
	MemPressure           float64
	DiskPressure          float64
	ContentionDurationMin time.Duration

	// Sizing
	SafetyMargin float64 // fraction, 0.20 = 20% headroom
	MinSamples   int

	// Anomaly detection
	AnomalyBaselineDays  int
	AnomalyDetectionDays int
	AnomalyWarningSigma  float64
	AnomalyCriticalSigma float64
	MinBaselinePoints    int

	// Notifications
	SlackWebhookURL string

	// Output
	OutputFormat string // text, json, csv
	Verbose      bool
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	return &Config{
		PrometheusURL:  getEnv("PROMETHEUS_URL", "http://localhost:9090"),
		AnalysisWindow: time.Duration(getEnvInt("ANALYSIS_WINDOW_DAYS", 7)) * 24 * time.Hour,
		SampleInterval: time.Duration(getEnvInt("SAMPLE_INTERVAL_MINUTES", 5)) * time.Minute,

		StorageEnabled: getEnvBool("STORAGE_ENABLED", false),
		DatabaseURL:    getEnv("DATABASE_URL", "host=localhost port=5432 user=rightsizer password=devpassword dbname=rightsizer sslmode=disable"),

		CatalogPath: getEnv("INSTANCE_CATALOG", "config/instance_catalog.yaml"),

		CPUHigh: getEnvFloat("CPU_HIGH_THRESHOLD", 80),
		MemHigh: getEnvFloat("MEM_HIGH_THRESHOLD", 85),
		CPULow:  getEnvFloat("CPU_LOW_THRESHOLD", 40),
		MemLow:  getEnvFloat("MEM_LOW_THRESHOLD", 50),

		CPUPressure:           getEnvFloat("CPU_PRESSURE_THRESHOLD", 90),
		MemPressure:           getEnvFloat("MEM_PRESSURE_THRESHOLD", 90),
		DiskPressure:          getEnvFloat("DISK_PRESSURE_THRESHOLD", 90),
		ContentionDurationMin: time.Duration(getEnvInt("CONTENTION_DURATION_MIN", 5)) * time.Minute,

		SafetyMargin: getEnvFloat("SAFETY_MARGIN", 0.20),
		MinSamples:   getEnvInt("MIN_SAMPLES", 3),

		AnomalyBaselineDays:  getEnvInt("ANOMALY_BASELINE_DAYS", 30),
		AnomalyDetectionDays: getEnvInt("ANOMALY_DETECTION_DAYS", 7),
		AnomalyWarningSigma:  getEnvFloat("ANOMALY_WARNING_SIGMA", 2.0),
		AnomalyCriticalSigma: getEnvFloat("ANOMALY_CRITICAL_SIGMA", 3.0),
		MinBaselinePoints:    getEnvInt("MIN_BASELINE_POINTS", 7),

		SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),

		OutputFormat: getEnv("OUTPUT_FORMAT", "text"),
		Verbose:      getEnvBool("VERBOSE", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.StorageEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	if c.AnalysisWindow < 1*time.Hour {
		return fmt.Errorf("analysis window must be at least 1 hour")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("sample interval must be positive")
	}
	if c.SafetyMargin < 0 {
		return fmt.Errorf("safety margin must be >= 0")
	}
	if c.MinSamples < 1 {
		return fmt.Errorf("min samples must be >= 1")
	}
	if c.CPULow >= c.CPUHigh {
		return fmt.Errorf("CPU low threshold must be below high threshold")
	}
	if c.MemLow >= c.MemHigh {
		return fmt.Errorf("memory low threshold must be below high threshold")
	}
	if c.AnomalyWarningSigma >= c.AnomalyCriticalSigma {
		return fmt.Errorf("warning sigma must be below critical sigma")
	}
	if c.MinBaselinePoints < 2 {
		return fmt.Errorf("min baseline points must be >= 2")
	}
	return nil
}
