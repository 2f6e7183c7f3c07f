// Package specialized is the lightweight classifier layer: toxicity and
// explicitness scoring with a confidence estimate, without the language
// model.
package specialized

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/telemetry"
)

// Flag names raised by this layer.
const (
	FlagToxicity     = "toxicity"
	FlagAdultContent = "adult_content"
)

// Config tunes the layer.
type Config struct {
	ToxicityThreshold     float64       `yaml:"toxicity_threshold"`
	ExplicitnessThreshold float64       `yaml:"explicitness_threshold"`
	Timeout               time.Duration `yaml:"timeout"`
	RemoteURL             string        `env:"SPECIALIZED_REMOTE_URL" yaml:"remote_url"`
}

const (
	defaultToxicityThreshold     = 0.7
	defaultExplicitnessThreshold = 0.8
	defaultTimeout               = time.Second

	shortTextTokens = 5
	longTextTokens  = 120
)

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.ToxicityThreshold == 0 {
		c.ToxicityThreshold = defaultToxicityThreshold
	}
	if c.ExplicitnessThreshold == 0 {
		c.ExplicitnessThreshold = defaultExplicitnessThreshold
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// Classifier runs a Scorer under a deadline and turns its scores into a
// LayerResult.
type Classifier struct {
	cfg       Config
	scorer    Scorer
	log       logger.Logger
	telemetry *telemetry.Provider
}

// New returns a Classifier. A nil scorer uses KeywordScorer.
func New(cfg Config, scorer Scorer, log logger.Logger, tp *telemetry.Provider) *Classifier {
	cfg.SetDefaults()
	if scorer == nil {
		scorer = KeywordScorer{}
	}
	return &Classifier{cfg: cfg, scorer: scorer, log: log, telemetry: tp}
}

// Classify scores content. Scorer failures, including the deadline, come
// back wrapped in domain.ErrClassifierUnavailable.
func (c *Classifier) Classify(ctx context.Context, content domain.ContentItem) (domain.LayerResult, error) {
	start := time.Now()
	defer func() {
		c.telemetry.M().ObserveLayer(string(domain.LayerSpecialized), time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	scores, err := c.scorer.Score(ctx, content.Text)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		kind := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			kind = "timeout"
		}
		c.telemetry.M().LayerError(string(domain.LayerSpecialized), kind)
		return domain.LayerResult{}, fmt.Errorf("%w: %s scorer: %w", domain.ErrClassifierUnavailable, c.scorer.Name(), err)
	}

	return c.result(content.Text, scores), nil
}

func (c *Classifier) result(text string, s Scores) domain.LayerResult {
	s.Toxicity = domain.Unit(s.Toxicity)
	s.Explicitness = domain.Unit(s.Explicitness)

	var flags []string
	if s.Toxicity >= c.cfg.ToxicityThreshold {
		flags = append(flags, FlagToxicity)
	}
	if s.Explicitness >= c.cfg.ExplicitnessThreshold {
		flags = append(flags, FlagAdultContent)
	}

	confidence := s.Confidence
	if confidence <= 0 {
		confidence = estimateConfidence(len(tokenize(text)), max(s.Toxicity, s.Explicitness))
	}

	return domain.LayerResult{
		Layer:         domain.LayerSpecialized,
		SafetyScore:   1 - max(s.Toxicity, s.Explicitness),
		CategoryFlags: flags,
		Confidence:    confidence,
		Reasoning:     reasoning(s),
		Detail: map[string]any{
			"scorer":       c.scorer.Name(),
			"toxicity":     s.Toxicity,
			"explicitness": s.Explicitness,
		},
	}.Clamp()
}

// estimateConfidence grows with the strength of the evidence. Without
// evidence, very short text says too little and long text may hide
// context the lexicon cannot see.
func estimateConfidence(tokens int, evidence float64) float64 {
	switch {
	case evidence > 0:
		return 0.6 + 0.35*evidence
	case tokens < shortTextTokens:
		return 0.6
	case tokens > longTextTokens:
		return 0.75
	default:
		return 0.9
	}
}

func reasoning(s Scores) string {
	if s.Toxicity == 0 && s.Explicitness == 0 {
		return "no toxic or explicit language detected"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "toxicity %.2f, explicitness %.2f", s.Toxicity, s.Explicitness)
	if len(s.Terms) > 0 {
		fmt.Fprintf(&b, " (terms: %s)", strings.Join(s.Terms, ", "))
	}
	return b.String()
}
