package datasource

import (
	"context"
	"time"

	"github.com/opscart/server-rightsizer/pkg/analyzer"
)

// DataSource defines the interface for collecting server metrics.
// Implementations own all network and credential concerns; the analysis
// engine only ever sees the ordered sample series they return.
type DataSource interface {
	GetSamples(ctx context.Context, server string, window time.Duration) (map[analyzer.MetricKind][]analyzer.MetricSample, error)
	IsAvailable(ctx context.Context) bool
	Name() string
}

type Config struct {
	PrometheusURL string
	Step          time.Duration
	Timeout       time.Duration
}
