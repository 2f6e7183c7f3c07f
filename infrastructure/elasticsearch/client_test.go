//nolint:testpackage // covers normalizeURL
package elasticsearch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/retry"
)

type pingTransport struct {
	failures int32
	calls    atomic.Int32
}

func (p *pingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	n := p.calls.Add(1)
	status := http.StatusOK
	if n <= p.failures {
		status = http.StatusServiceUnavailable
	}
	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(`{}`)),
	}, nil
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                           defaultURL,
		"es:9200":                    "http://es:9200",
		"https://es.example.org:443": "https://es.example.org:443",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeURL(in), in)
	}
}

func TestNewClient_RetriesUntilReachable(t *testing.T) {
	t.Parallel()

	tr := &pingTransport{failures: 2}
	cfg := Config{
		URL:        "es:9200",
		MaxRetries: -1,
		Transport:  tr,
		Connect:    retry.Config{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}

	client, err := NewClient(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.GreaterOrEqual(t, tr.calls.Load(), int32(3))
}

func TestNewClient_GivesUp(t *testing.T) {
	t.Parallel()

	cfg := Config{
		MaxRetries: -1,
		Transport:  &pingTransport{failures: 100},
		Connect:    retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}

	_, err := NewClient(context.Background(), cfg, logger.NewNop())
	require.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
}
