package lmanalyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	infraerrors "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/errors"
	infrahttp "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/http"
)

const (
	defaultOllamaURL   = "http://127.0.0.1:11434"
	defaultOllamaModel = "llama3.1:8b"
)

// OllamaConfig configures the local Ollama provider.
type OllamaConfig struct {
	BaseURL string `env:"OLLAMA_URL"   yaml:"base_url"`
	Model   string `env:"OLLAMA_MODEL" yaml:"model"`
}

// OllamaProvider calls Ollama's /api/chat endpoint with JSON output mode.
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaProvider returns a provider. Timeouts come from the caller's
// context.
func NewOllamaProvider(cfg OllamaConfig, httpClient *http.Client) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	if httpClient == nil {
		httpClient = infrahttp.NewClient(infrahttp.ClientConfig{})
	}
	return &OllamaProvider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: httpClient,
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// Name implements Provider.
func (p *OllamaProvider) Name() string { return "ollama" }

// Complete implements Provider.
func (p *OllamaProvider) Complete(ctx context.Context, req Request) (string, error) {
	options := map[string]any{"temperature": 0}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	body, err := json.Marshal(ollamaChatRequest{
		Model: p.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Format:  "json",
		Options: options,
	})
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Kind: ErrKindBadRequest, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Kind: ErrKindConnection, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Kind: kindForTransport(err), Err: err}
	}
	defer resp.Body.Close()

	if httpErr := infraerrors.ParseHTTPError(resp); httpErr != nil {
		return "", &ProviderError{
			Provider:   p.Name(),
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("chat: %w", httpErr),
		}
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		kind := ErrKindInvalidResponse
		if errors.Is(err, context.DeadlineExceeded) {
			kind = ErrKindTimeout
		}
		return "", &ProviderError{Provider: p.Name(), Kind: kind, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != "" {
		return "", &ProviderError{Provider: p.Name(), Kind: ErrKindServer, Err: errors.New(out.Error)}
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", &ProviderError{Provider: p.Name(), Kind: ErrKindInvalidResponse, Err: errors.New("empty message")}
	}
	return out.Message.Content, nil
}
