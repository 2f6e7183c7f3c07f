// Package audit appends an immutable record of every curation decision to
// one or more sinks.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	infracontext "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/context"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/telemetry"
)

// Record is what gets persisted for one decision.
type Record struct {
	ID                 string               `db:"id"                 json:"id"`
	Timestamp          time.Time            `db:"created_at"         json:"timestamp"`
	ContentID          string               `db:"content_id"         json:"content_id"`
	ProfileID          string               `db:"profile_id"         json:"profile_id"`
	Decision           domain.Action        `db:"decision"           json:"decision"`
	Reason             string               `db:"reason"             json:"reason"`
	Confidence         float64              `db:"confidence"         json:"confidence"`
	StrategyUsed       string               `db:"strategy_used"      json:"strategy_used"`
	ContributingLayers []domain.LayerResult `db:"-"                  json:"contributing_layers"`
	ProcessingTimeMs   int64                `db:"processing_time_ms" json:"processing_time_ms"`
	Cached             bool                 `db:"cached"             json:"cached"`
	Errors             []string             `db:"-"                  json:"errors,omitempty"`
}

// NewRecord captures d for contentID and profileID.
func NewRecord(contentID, profileID string, d domain.CurationDecision, now time.Time) Record {
	return Record{
		ID:                 uuid.NewString(),
		Timestamp:          now.UTC(),
		ContentID:          contentID,
		ProfileID:          profileID,
		Decision:           d.Action,
		Reason:             d.Reason,
		Confidence:         d.Confidence,
		StrategyUsed:       d.StrategyUsed,
		ContributingLayers: d.ContributingLayers,
		ProcessingTimeMs:   d.ProcessingTimeMs,
		Cached:             d.Cached,
		Errors:             d.Errors,
	}
}

// LayerNames returns the contributing layer names in order.
func (r Record) LayerNames() []string {
	names := make([]string, len(r.ContributingLayers))
	for i, l := range r.ContributingLayers {
		names[i] = string(l.Layer)
	}
	return names
}

// Sink persists records.
type Sink interface {
	Name() string
	Write(ctx context.Context, r Record) error
}

// Multi fans a record out to every sink. A failing sink does not stop the
// others; failures are logged, counted and joined into the returned error.
type Multi struct {
	sinks     []Sink
	timeout   time.Duration
	log       logger.Logger
	telemetry *telemetry.Provider
}

// NewMulti returns a fan-out over sinks.
func NewMulti(log logger.Logger, tp *telemetry.Provider, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, log: log, telemetry: tp}
}

// WithTimeout bounds each Write by d.
func (m *Multi) WithTimeout(d time.Duration) *Multi {
	m.timeout = d
	return m
}

// Name implements Sink.
func (m *Multi) Name() string { return "multi" }

// Write implements Sink.
func (m *Multi) Write(ctx context.Context, r Record) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = infracontext.WithQueryTimeout(ctx, m.timeout)
		defer cancel()
	}

	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, r); err != nil {
			m.telemetry.M().AuditFailure(s.Name())
			m.log.Error("Failed to write audit record",
				logger.String("sink", s.Name()),
				logger.String("record_id", r.ID),
				logger.String("content_id", r.ContentID),
				logger.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogSink writes records as structured log lines.
type LogSink struct {
	log logger.Logger
}

// NewLogSink returns a sink logging at info level.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Write implements Sink.
func (s *LogSink) Write(_ context.Context, r Record) error {
	s.log.Info("Curation decision",
		logger.String("audit_id", r.ID),
		logger.String("content_id", r.ContentID),
		logger.String("profile_id", r.ProfileID),
		logger.String("decision", string(r.Decision)),
		logger.String("strategy", r.StrategyUsed),
		logger.Float64("confidence", r.Confidence),
		logger.Strings("layers", r.LayerNames()),
		logger.Int64("processing_time_ms", r.ProcessingTimeMs),
		logger.Strings("errors", r.Errors),
	)
	return nil
}
