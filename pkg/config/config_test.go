package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.PrometheusURL != "http://localhost:9090" {
		t.Errorf("Expected default Prometheus URL, got %s", cfg.PrometheusURL)
	}
	if cfg.AnalysisWindow != 7*24*time.Hour {
		t.Errorf("Expected 7 day analysis window, got %v", cfg.AnalysisWindow)
	}
	if cfg.SampleInterval != 5*time.Minute {
		t.Errorf("Expected 5 minute sample interval, got %v", cfg.SampleInterval)
	}
	if cfg.CPUHigh != 80 || cfg.MemHigh != 85 || cfg.CPULow != 40 || cfg.MemLow != 50 {
		t.Errorf("Unexpected classification thresholds: %v/%v/%v/%v",
			cfg.CPUHigh, cfg.MemHigh, cfg.CPULow, cfg.MemLow)
	}
	if cfg.SafetyMargin != 0.20 {
		t.Errorf("Expected 20%% safety margin, got %v", cfg.SafetyMargin)
	}
	if cfg.ContentionDurationMin != 5*time.Minute {
		t.Errorf("Expected 5 minute contention minimum, got %v", cfg.ContentionDurationMin)
	}
	if cfg.AnomalyBaselineDays != 30 || cfg.AnomalyDetectionDays != 7 {
		t.Errorf("Unexpected anomaly windows: %d/%d", cfg.AnomalyBaselineDays, cfg.AnomalyDetectionDays)
	}
	if cfg.AnomalyWarningSigma != 2.0 || cfg.AnomalyCriticalSigma != 3.0 {
		t.Errorf("Unexpected sigma thresholds: %v/%v", cfg.AnomalyWarningSigma, cfg.AnomalyCriticalSigma)
	}
	if cfg.StorageEnabled {
		t.Error("Expected storage disabled by default")
	}
	if cfg.OutputFormat != "text" {
		t.Errorf("Expected text output by default, got %s", cfg.OutputFormat)
	}
}

func TestNewConfigEnvOverrides(t *testing.T) {
	t.Setenv("CPU_HIGH_THRESHOLD", "75")
	t.Setenv("SAFETY_MARGIN", "0.35")
	t.Setenv("MIN_SAMPLES", "10")
	t.Setenv("STORAGE_ENABLED", "true")
	t.Setenv("ANALYSIS_WINDOW_DAYS", "14")

	cfg := NewConfig()

	if cfg.CPUHigh != 75 {
		t.Errorf("Expected CPU high 75, got %v", cfg.CPUHigh)
	}
	if cfg.SafetyMargin != 0.35 {
		t.Errorf("Expected safety margin 0.35, got %v", cfg.SafetyMargin)
	}
	if cfg.MinSamples != 10 {
		t.Errorf("Expected min samples 10, got %d", cfg.MinSamples)
	}
	if !cfg.StorageEnabled {
		t.Error("Expected storage enabled")
	}
	if cfg.AnalysisWindow != 14*24*time.Hour {
		t.Errorf("Expected 14 day window, got %v", cfg.AnalysisWindow)
	}
}

func TestNewConfigMalformedEnvFallsBack(t *testing.T) {
	t.Setenv("CPU_HIGH_THRESHOLD", "not-a-number")
	t.Setenv("MIN_SAMPLES", "3.5")

	cfg := NewConfig()

	if cfg.CPUHigh != 80 {
		t.Errorf("Expected default for malformed float, got %v", cfg.CPUHigh)
	}
	if cfg.MinSamples != 3 {
		t.Errorf("Expected default for malformed int, got %d", cfg.MinSamples)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "storage enabled without database URL",
			mutate: func(c *Config) {
				c.StorageEnabled = true
				c.DatabaseURL = ""
			},
			wantErr: true,
		},
		{
			name: "analysis window too short",
			mutate: func(c *Config) {
				c.AnalysisWindow = 30 * time.Minute
			},
			wantErr: true,
		},
		{
			name: "negative safety margin",
			mutate: func(c *Config) {
				c.SafetyMargin = -0.1
			},
			wantErr: true,
		},
		{
			name: "cpu low above high",
			mutate: func(c *Config) {
				c.CPULow = 85
			},
			wantErr: true,
		},
		{
			name: "memory low above high",
			mutate: func(c *Config) {
				c.MemLow = 90
			},
			wantErr: true,
		},
		{
			name: "warning sigma above critical",
			mutate: func(c *Config) {
				c.AnomalyWarningSigma = 3.5
			},
			wantErr: true,
		},
		{
			name: "zero min samples",
			mutate: func(c *Config) {
				c.MinSamples = 0
			},
			wantErr: true,
		},
		{
			name: "min baseline points too small",
			mutate: func(c *Config) {
				c.MinBaselinePoints = 1
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}
