// Package elasticsearch builds a verified go-elasticsearch client.
package elasticsearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/retry"
)

const defaultURL = "http://localhost:9200"

// Config holds client settings.
type Config struct {
	URL         string        `env:"ELASTICSEARCH_URL"      yaml:"url"`
	Username    string        `env:"ELASTICSEARCH_USERNAME" yaml:"username"`
	Password    string        `env:"ELASTICSEARCH_PASSWORD" yaml:"password"`
	APIKey      string        `env:"ELASTICSEARCH_API_KEY"  yaml:"api_key"`
	// MaxRetries below zero disables transport-level retries.
	MaxRetries  int           `yaml:"max_retries"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
	Connect     retry.Config  `yaml:"connect"`

	// Transport replaces the default HTTP transport, for tests.
	Transport http.RoundTripper `yaml:"-"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	c.URL = normalizeURL(c.URL)
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.Connect.MaxAttempts == 0 {
		c.Connect = retry.Config{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: 8 * time.Second, Multiplier: 2}
	}
}

// NewClient creates a client and pings it until reachable or the connect
// retry budget is spent.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*es.Client, error) {
	cfg.SetDefaults()

	client, err := es.NewClient(es.Config{
		Addresses:    []string{cfg.URL},
		Username:     cfg.Username,
		Password:     cfg.Password,
		APIKey:       cfg.APIKey,
		MaxRetries:   max(cfg.MaxRetries, 0),
		DisableRetry: cfg.MaxRetries < 0,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	connect := cfg.Connect
	connect.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn("Elasticsearch not reachable yet",
			logger.Int("attempt", attempt),
			logger.Duration("retry_in", delay),
			logger.Error(err),
		)
	}
	connect.IsRetryable = func(error) bool { return true }

	if err = retry.Do(ctx, connect, func(ctx context.Context) error {
		return Ping(ctx, client, cfg.PingTimeout)
	}); err != nil {
		return nil, fmt.Errorf("connect to elasticsearch at %s: %w", cfg.URL, err)
	}

	log.Info("Elasticsearch connection established", logger.String("url", cfg.URL))
	return client, nil
}

// Ping checks cluster reachability within timeout.
func Ping(ctx context.Context, client *es.Client, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("ping returned %s: %s", res.Status(), strings.TrimSpace(string(body)))
	}
	return nil
}

func normalizeURL(url string) string {
	switch {
	case url == "":
		return defaultURL
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return url
	default:
		return "http://" + url
	}
}
