package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Sink persists completed benchmark results.
type Sink interface {
	Save(ctx context.Context, result *Result) error
	Close() error
}

// PostgresSink stores benchmark results in a Postgres table so runs can be
// compared across builds and machines.
type PostgresSink struct {
	db     *sqlx.DB
	logger *zap.Logger
}

const createResultsTable = `
CREATE TABLE IF NOT EXISTS benchmark_results (
	id                 BIGSERIAL PRIMARY KEY,
	run_at             TIMESTAMPTZ NOT NULL,
	iterations         INTEGER NOT NULL,
	warmup             INTEGER NOT NULL,
	completed          INTEGER NOT NULL,
	failed             INTEGER NOT NULL,
	mean_latency_ms    DOUBLE PRECISION NOT NULL,
	min_latency_ms     DOUBLE PRECISION NOT NULL,
	max_latency_ms     DOUBLE PRECISION NOT NULL,
	mean_inference_ms  DOUBLE PRECISION NOT NULL,
	throughput_per_sec DOUBLE PRECISION NOT NULL,
	wall_seconds       DOUBLE PRECISION NOT NULL,
	tier               TEXT NOT NULL,
	cpu_avg_percent    DOUBLE PRECISION,
	cpu_max_percent    DOUBLE PRECISION,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresSink connects to the database and ensures the results table
// exists.
func NewPostgresSink(databaseURL string, logger *zap.Logger) (*PostgresSink, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, createResultsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create results table: %w", err)
	}

	logger.Info("Benchmark result sink ready")
	return &PostgresSink{db: db, logger: logger}, nil
}

// Save inserts one benchmark result.
func (s *PostgresSink) Save(ctx context.Context, result *Result) error {
	query := `
		INSERT INTO benchmark_results (
			run_at, iterations, warmup, completed, failed,
			mean_latency_ms, min_latency_ms, max_latency_ms,
			mean_inference_ms, throughput_per_sec, wall_seconds, tier,
			cpu_avg_percent, cpu_max_percent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	runAt, err := time.Parse(time.RFC3339, result.TimestampRFC3339)
	if err != nil {
		runAt = time.Now()
	}

	var cpuAvg, cpuMax *float64
	if result.Resources != nil {
		cpuAvg = &result.Resources.CPUAvgPercent
		cpuMax = &result.Resources.CPUMaxPercent
	}

	var id int64
	err = s.db.QueryRowContext(ctx, query,
		runAt, result.Iterations, result.Warmup, result.Completed, result.Failed,
		result.MeanLatencyMs, result.MinLatencyMs, result.MaxLatencyMs,
		result.MeanInferenceMs, result.ThroughputPerSec, result.WallSeconds,
		string(result.Tier), cpuAvg, cpuMax,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert benchmark result: %w", err)
	}

	s.logger.Info("Benchmark result persisted", zap.Int64("id", id))
	return nil
}

// Close closes the database connection.
func (s *PostgresSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
