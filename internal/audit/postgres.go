package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresSink appends records to the curation_audit table.
type PostgresSink struct {
	db *sqlx.DB
}

// NewPostgresSink returns a sink over db.
func NewPostgresSink(db *sqlx.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return "postgres" }

// Write implements Sink.
func (s *PostgresSink) Write(ctx context.Context, r Record) error {
	layers, err := json.Marshal(r.ContributingLayers)
	if err != nil {
		return fmt.Errorf("encode contributing layers: %w", err)
	}

	query := `
		INSERT INTO curation_audit (
			id, created_at, content_id, profile_id, decision, reason, confidence,
			strategy_used, contributing_layers, processing_time_ms, cached, errors
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12)
	`

	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.Timestamp,
		r.ContentID,
		r.ProfileID,
		r.Decision,
		r.Reason,
		r.Confidence,
		r.StrategyUsed,
		string(layers),
		r.ProcessingTimeMs,
		r.Cached,
		pq.Array(r.Errors),
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}
