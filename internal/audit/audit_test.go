package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/audit"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/telemetry"
)

func sampleRecord() audit.Record {
	d := domain.CurationDecision{
		Action:       domain.ActionCaution,
		Reason:       "specialized: toxicity 0.40",
		Confidence:   0.7,
		StrategyUsed: "hybrid",
		ContributingLayers: []domain.LayerResult{
			{Layer: domain.LayerSpecialized, SafetyScore: 0.6, Confidence: 0.8, CategoryFlags: []string{"toxicity"}},
			{Layer: domain.LayerLanguageModel, SafetyScore: 0.7, Confidence: 0.9, Reasoning: "mild insult"},
		},
		ProcessingTimeMs: 42,
	}
	return audit.NewRecord("content-1", "profile-1", d, time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)))
}

func TestNewRecord(t *testing.T) {
	t.Parallel()

	r := sampleRecord()
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, time.UTC, r.Timestamp.Location())
	assert.Equal(t, 11, r.Timestamp.Hour())
	assert.Equal(t, domain.ActionCaution, r.Decision)
	assert.Equal(t, []string{"specialized", "language_model"}, r.LayerNames())
	require.Len(t, r.ContributingLayers, 2)
	assert.InDelta(t, 0.6, r.ContributingLayers[0].SafetyScore, 1e-9)
	assert.Equal(t, []string{"toxicity"}, r.ContributingLayers[0].CategoryFlags)
	assert.InDelta(t, 0.9, r.ContributingLayers[1].Confidence, 1e-9)
	assert.NotEqual(t, r.ID, sampleRecord().ID)
}

func TestPostgresSink_Write(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := sampleRecord()
	layers, err := json.Marshal(r.ContributingLayers)
	require.NoError(t, err)
	mock.ExpectExec("INSERT INTO curation_audit").
		WithArgs(r.ID, r.Timestamp, "content-1", "profile-1", domain.ActionCaution, r.Reason, 0.7, "hybrid",
			string(layers), int64(42), false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sink := audit.NewPostgresSink(sqlx.NewDb(db, "postgres"))
	require.NoError(t, sink.Write(context.Background(), r))
	require.NoError(t, mock.ExpectationsWereMet())
}

type mockTransport struct {
	fn func(req *http.Request) (*http.Response, error)
}

func (t *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) { return t.fn(req) }

func esResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"X-Elastic-Product": []string{"Elasticsearch"}},
	}
}

func TestElasticsearchSink_Write(t *testing.T) {
	t.Parallel()

	r := sampleRecord()
	var gotPath, gotOpType string
	var gotDoc map[string]any

	client, err := es.NewClient(es.Config{Transport: &mockTransport{fn: func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		gotOpType = req.URL.Query().Get("op_type")
		if req.Body != nil {
			_ = json.NewDecoder(req.Body).Decode(&gotDoc)
		}
		return esResponse(http.StatusCreated, `{"result":"created"}`), nil
	}}})
	require.NoError(t, err)

	sink := audit.NewElasticsearchSink(client, "")
	require.NoError(t, sink.Write(context.Background(), r))

	assert.Equal(t, "/curation_audit/_doc/"+r.ID, gotPath)
	assert.Equal(t, "create", gotOpType)
	assert.Equal(t, "caution", gotDoc["decision"])
	assert.Equal(t, "profile-1", gotDoc["profile_id"])
	layers, ok := gotDoc["contributing_layers"].([]any)
	require.True(t, ok)
	require.Len(t, layers, 2)
	first, ok := layers[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "specialized", first["layer"])
	assert.InDelta(t, 0.6, first["safety_score"], 1e-9)
}

func TestElasticsearchSink_WriteError(t *testing.T) {
	t.Parallel()

	client, err := es.NewClient(es.Config{Transport: &mockTransport{fn: func(*http.Request) (*http.Response, error) {
		return esResponse(http.StatusConflict, `{"error":{"type":"version_conflict_engine_exception"}}`), nil
	}}})
	require.NoError(t, err)

	err = audit.NewElasticsearchSink(client, "audit").Write(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

type recordingSink struct {
	name    string
	err     error
	records []audit.Record
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, r audit.Record) error {
	s.records = append(s.records, r)
	return s.err
}

func TestMulti_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	tp := telemetry.NewProvider()
	broken := &recordingSink{name: "broken", err: errors.New("disk full")}
	healthy := &recordingSink{name: "healthy"}

	m := audit.NewMulti(logger.NewNop(), tp, broken, healthy, audit.NewLogSink(logger.NewNop()))
	err := m.Write(context.Background(), sampleRecord())

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "broken: disk full"))
	assert.Len(t, broken.records, 1)
	assert.Len(t, healthy.records, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(tp.Metrics.AuditFailures.WithLabelValues("broken")), 1e-9)
}

type deadlineSink struct {
	deadline time.Time
	ok       bool
}

func (s *deadlineSink) Name() string { return "deadline" }

func (s *deadlineSink) Write(ctx context.Context, _ audit.Record) error {
	s.deadline, s.ok = ctx.Deadline()
	return nil
}

func TestMulti_WithTimeoutBoundsWrites(t *testing.T) {
	t.Parallel()

	sink := &deadlineSink{}
	m := audit.NewMulti(logger.NewNop(), nil, sink)

	require.NoError(t, m.Write(context.Background(), sampleRecord()))
	assert.False(t, sink.ok)

	start := time.Now()
	require.NoError(t, m.WithTimeout(time.Second).Write(context.Background(), sampleRecord()))
	require.True(t, sink.ok)
	assert.WithinDuration(t, start.Add(time.Second), sink.deadline, 500*time.Millisecond)
}
