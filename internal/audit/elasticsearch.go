package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
)

// DefaultIndex receives audit documents unless configured otherwise.
const DefaultIndex = "curation_audit"

// ElasticsearchSink indexes records, one document per decision keyed by the
// record id.
type ElasticsearchSink struct {
	client *es.Client
	index  string
}

// NewElasticsearchSink returns a sink writing to index.
func NewElasticsearchSink(client *es.Client, index string) *ElasticsearchSink {
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticsearchSink{client: client, index: index}
}

// Name implements Sink.
func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

// Write implements Sink.
func (s *ElasticsearchSink) Write(ctx context.Context, r Record) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(doc),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(r.ID),
		s.client.Index.WithOpType("create"),
	)
	if err != nil {
		return fmt.Errorf("index audit record: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index audit record: %s", res.String())
	}
	return nil
}
