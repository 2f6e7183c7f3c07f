package specialized

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	infraerrors "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/errors"
	infrahttp "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/http"
)

const defaultRemoteTimeout = 800 * time.Millisecond

// RemoteScorer calls an ML sidecar exposing POST /classify.
type RemoteScorer struct {
	baseURL string
	client  *http.Client
}

// NewRemoteScorer targets baseURL. A zero timeout uses 800ms.
func NewRemoteScorer(baseURL string, timeout time.Duration) *RemoteScorer {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &RemoteScorer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  infrahttp.NewClient(infrahttp.ClientConfig{Timeout: timeout}),
	}
}

// Name identifies the scorer in results.
func (r *RemoteScorer) Name() string { return "remote" }

type classifyRequest struct {
	Text string `json:"text"`
}

// Score posts text and decodes the sidecar's scores.
func (r *RemoteScorer) Score(ctx context.Context, text string) (Scores, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return Scores{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return Scores{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Scores{}, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if httpErr := infraerrors.ParseHTTPError(resp); httpErr != nil {
		return Scores{}, fmt.Errorf("classifier sidecar: %w", httpErr)
	}
	var s Scores
	if err = json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return Scores{}, fmt.Errorf("decode response: %w", err)
	}
	return s, nil
}
