package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/service/stats"
	"github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS translation_reports (
	id                 BIGSERIAL PRIMARY KEY,
	request_id         TEXT NOT NULL,
	source_language    TEXT NOT NULL DEFAULT '',
	final_state        TEXT NOT NULL,
	error_code         TEXT NOT NULL DEFAULT '',
	duration_ms        BIGINT NOT NULL,
	provability_score  DOUBLE PRECISION,
	quality_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
	quality_grade      TEXT NOT NULL DEFAULT '',
	estimated_big_o    TEXT NOT NULL DEFAULT '',
	lines_of_code      INTEGER NOT NULL DEFAULT 0,
	function_count     INTEGER NOT NULL DEFAULT 0,
	confidence         DOUBLE PRECISION NOT NULL DEFAULT 0,
	degraded_analyzers TEXT[] NOT NULL DEFAULT '{}',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_translation_reports_created_at ON translation_reports (created_at);
`

const insertReportSQL = `
INSERT INTO translation_reports (
	request_id, source_language, final_state, error_code, duration_ms,
	provability_score, quality_score, quality_grade, estimated_big_o,
	lines_of_code, function_count, confidence, degraded_analyzers, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// ReportRepository persists one row per finished request for external
// reporting tools.
type ReportRepository struct {
	db     Execer
	logger *zap.Logger
}

func NewReportRepository(db Execer, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{db: db, logger: logger}
}

func (r *ReportRepository) Name() string { return "postgres" }

func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return errors.NewStoreError("failed to create report schema", "postgres", "migrate", err)
	}
	r.logger.Info("Report schema ready")
	return nil
}

// Write implements stats.Sink.
func (r *ReportRepository) Write(ctx context.Context, o stats.Outcome) error {
	degraded := make([]string, 0, len(o.Degraded))
	for _, a := range o.Degraded {
		degraded = append(degraded, string(a))
	}

	var provability sql.NullFloat64
	if o.Provability != nil {
		provability = sql.NullFloat64{Float64: *o.Provability, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, insertReportSQL,
		o.RequestID,
		o.Language,
		string(o.State),
		o.ErrorCode,
		o.Duration.Milliseconds(),
		provability,
		o.Quality,
		o.Grade,
		o.BigO,
		o.Lines,
		o.Functions,
		o.Confidence,
		pq.Array(degraded),
		o.At,
	)
	if err != nil {
		return errors.NewStoreError(fmt.Sprintf("failed to record report %s", o.RequestID), "postgres", "insert", err)
	}
	return nil
}
