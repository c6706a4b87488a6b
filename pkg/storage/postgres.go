package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/opscart/server-rightsizer/pkg/anomaly"
	"github.com/opscart/server-rightsizer/pkg/engine"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store interface using PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{
		db:  db,
		dsn: dsn,
	}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// SaveResult persists one server's recommendation and projection
func (s *PostgresStore) SaveResult(ctx context.Context, runID string, result *engine.ServerResult) error {
	rec := result.Recommendation

	var monthly, yearly float64
	if result.Projection != nil {
		monthly = result.Projection.MonthlySavings
		yearly = result.Projection.YearlySavings
	}

	query := `
		INSERT INTO recommendations (
			id, run_id, server, classification,
			current_instance_type, recommended_instance_type,
			confidence, rationale,
			monthly_savings_usd, yearly_savings_usd, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), runID, rec.Server, string(rec.Classification),
		rec.CurrentInstanceType, rec.RecommendedInstanceType,
		rec.Confidence, strings.Join(rec.Rationale, "; "),
		monthly, yearly, time.Now(),
	)

	return err
}

// ListRecommendations retrieves past recommendations for a server
func (s *PostgresStore) ListRecommendations(ctx context.Context, server string, limit int) ([]*StoredRecommendation, error) {
	query := `
		SELECT id, run_id, server, classification,
			current_instance_type, recommended_instance_type,
			confidence, rationale,
			monthly_savings_usd, yearly_savings_usd, created_at
		FROM recommendations
		WHERE server = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, server, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recommendations []*StoredRecommendation
	for rows.Next() {
		var rec StoredRecommendation
		var recommendedType sql.NullString

		err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Server, &rec.Classification,
			&rec.CurrentInstanceType, &recommendedType,
			&rec.Confidence, &rec.Rationale,
			&rec.MonthlySavings, &rec.YearlySavings, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		rec.RecommendedInstanceType = recommendedType.String
		recommendations = append(recommendations, &rec)
	}

	return recommendations, rows.Err()
}

// SaveAnomaly persists one detected cost anomaly
func (s *PostgresStore) SaveAnomaly(ctx context.Context, a *anomaly.Anomaly) error {
	query := `
		INSERT INTO cost_anomalies (
			id, service, anomaly_date, observed_value,
			baseline_mean, baseline_stddev, z_score, severity, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), a.Service, a.Date, a.ObservedValue,
		a.BaselineMean, a.BaselineStdDev, a.ZScore, string(a.Severity), a.DetectedAt,
	)

	return err
}

// ListAnomalies retrieves past anomalies for a service
func (s *PostgresStore) ListAnomalies(ctx context.Context, service string, limit int) ([]*anomaly.Anomaly, error) {
	query := `
		SELECT service, anomaly_date, observed_value,
			baseline_mean, baseline_stddev, z_score, severity, detected_at
		FROM cost_anomalies
		WHERE service = $1
		ORDER BY detected_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, service, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anomalies []*anomaly.Anomaly
	for rows.Next() {
		var a anomaly.Anomaly
		var severity string

		err := rows.Scan(
			&a.Service, &a.Date, &a.ObservedValue,
			&a.BaselineMean, &a.BaselineStdDev, &a.ZScore, &severity, &a.DetectedAt,
		)
		if err != nil {
			return nil, err
		}

		a.Severity = anomaly.Severity(severity)
		anomalies = append(anomalies, &a)
	}

	return anomalies, rows.Err()
}

// SaveDailyCost upserts one day's total spend for a service
func (s *PostgresStore) SaveDailyCost(ctx context.Context, service string, day anomaly.DailyCost) error {
	query := `
		INSERT INTO daily_costs (service, cost_date, total_cost_usd)
		VALUES ($1, $2, $3)
		ON CONFLICT (service, cost_date)
		DO UPDATE SET total_cost_usd = EXCLUDED.total_cost_usd
	`

	_, err := s.db.ExecContext(ctx, query, service, day.Date, day.Cost)
	return err
}

// GetDailyCosts retrieves the trailing cost history for a service, oldest
// first so it can feed the anomaly baseline directly.
func (s *PostgresStore) GetDailyCosts(ctx context.Context, service string, days int) ([]anomaly.DailyCost, error) {
	query := `
		SELECT cost_date, total_cost_usd
		FROM (
			SELECT cost_date, total_cost_usd
			FROM daily_costs
			WHERE service = $1
			ORDER BY cost_date DESC
			LIMIT $2
		) recent
		ORDER BY cost_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, service, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []anomaly.DailyCost
	for rows.Next() {
		var day anomaly.DailyCost
		if err := rows.Scan(&day.Date, &day.Cost); err != nil {
			return nil, err
		}
		costs = append(costs, day)
	}

	return costs, rows.Err()
}

// ListServices returns all services with recorded cost history
func (s *PostgresStore) ListServices(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT service FROM daily_costs ORDER BY service`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []string
	for rows.Next() {
		var service string
		if err := rows.Scan(&service); err != nil {
			return nil, err
		}
		services = append(services, service)
	}

	return services, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
