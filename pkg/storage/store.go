package storage

import (
	"context"
	"time"

	"github.com/opscart/server-rightsizer/pkg/anomaly"
	"github.com/opscart/server-rightsizer/pkg/engine"
)

// Store defines the interface for persistent storage
type Store interface {
	SaveResult(ctx context.Context, runID string, result *engine.ServerResult) error
	ListRecommendations(ctx context.Context, server string, limit int) ([]*StoredRecommendation, error)

	SaveAnomaly(ctx context.Context, a *anomaly.Anomaly) error
	ListAnomalies(ctx context.Context, service string, limit int) ([]*anomaly.Anomaly, error)

	SaveDailyCost(ctx context.Context, service string, day anomaly.DailyCost) error
	GetDailyCosts(ctx context.Context, service string, days int) ([]anomaly.DailyCost, error)
	ListServices(ctx context.Context) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// StoredRecommendation is a persisted recommendation row
type StoredRecommendation struct {
	ID                      string
	RunID                   string
	Server                  string
	Classification          string
	CurrentInstanceType     string
	RecommendedInstanceType string
	Confidence              float64
	Rationale               string
	MonthlySavings          float64
	YearlySavings           float64
	CreatedAt               time.Time
}
