// Package lmanalyzer is the language model layer: prompt construction,
// ordered provider fallback with retry and circuit breaking, and strict
// validation of the structured response.
package lmanalyzer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/circuitbreaker"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/retry"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/telemetry"
)

// Flags derived from the safety sub-scores.
const (
	FlagAdultContent     = "adult_content"
	FlagViolence         = "violence"
	FlagHateSpeech       = "hate_speech"
	FlagMisinformation   = "misinformation"
	FlagAgeInappropriate = "age_inappropriate"
	FlagFallback         = "lm_fallback"
)

const (
	violenceFlagThreshold       = 0.7
	hateSpeechFlagThreshold     = 0.5
	misinformationFlagThreshold = 0.7

	fallbackScore      = 0.5
	fallbackConfidence = 0.3
)

// Config tunes the analyzer.
type Config struct {
	// Providers is the fallback order, e.g. [anthropic, ollama].
	Providers []string        `env:"LM_PROVIDERS" yaml:"providers"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Ollama    OllamaConfig    `yaml:"ollama"`

	// Deadline bounds a whole Analyze call across retries and providers.
	Deadline  time.Duration `env:"LM_DEADLINE" yaml:"deadline"`
	MaxTokens int           `yaml:"max_tokens"`

	Retry   retry.Config          `yaml:"retry"`
	Breaker circuitbreaker.Config `yaml:"breaker"`

	// RateLimit is requests per second per provider; 0 disables throttling.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

const (
	defaultDeadline  = 12 * time.Second
	defaultMaxTokens = 1024
	defaultBurst     = 5
)

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if len(c.Providers) == 0 {
		c.Providers = []string{"anthropic", "ollama"}
	}
	if c.Deadline <= 0 {
		c.Deadline = defaultDeadline
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = retry.Config{
			MaxAttempts:  2,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		}
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
}

// NewProviders builds the configured providers in fallback order. An
// anthropic entry without an API key is skipped with a warning so local
// setups fall through to ollama.
func NewProviders(cfg Config, log logger.Logger) ([]Provider, error) {
	providers := make([]Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "anthropic":
			p, err := NewAnthropicProvider(cfg.Anthropic)
			if err != nil {
				log.Warn("Skipping language model provider", logger.String("provider", name), logger.Error(err))
				continue
			}
			providers = append(providers, p)
		case "ollama":
			providers = append(providers, NewOllamaProvider(cfg.Ollama, nil))
		default:
			return nil, &domain.ConfigurationError{Setting: "lm.providers", Value: name, Reason: "unknown provider"}
		}
	}
	return providers, nil
}

type backend struct {
	provider Provider
	breaker  *circuitbreaker.Breaker
	limiter  *rate.Limiter
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	cfg       Config
	backends  []*backend
	log       logger.Logger
	telemetry *telemetry.Provider
}

// New returns an Analyzer trying providers in the given order.
func New(cfg Config, providers []Provider, log logger.Logger, tp *telemetry.Provider) *Analyzer {
	cfg.SetDefaults()
	a := &Analyzer{cfg: cfg, log: log, telemetry: tp}

	for _, p := range providers {
		limit := rate.Inf
		if cfg.RateLimit > 0 {
			limit = rate.Limit(cfg.RateLimit)
		}
		bcfg := cfg.Breaker
		name := p.Name()
		bcfg.OnStateChange = func(from, to circuitbreaker.State) {
			log.Warn("Language model circuit changed state",
				logger.String("provider", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}
		a.backends = append(a.backends, &backend{
			provider: p,
			breaker:  circuitbreaker.New(bcfg),
			limiter:  rate.NewLimiter(limit, cfg.Burst),
		})
	}
	return a
}

// Available reports whether at least one provider's circuit is not open.
func (a *Analyzer) Available() bool {
	if a == nil {
		return false
	}
	return slices.ContainsFunc(a.backends, func(b *backend) bool {
		return b.breaker.State() != circuitbreaker.StateOpen
	})
}

// ProviderStats returns breaker state per provider.
func (a *Analyzer) ProviderStats() map[string]circuitbreaker.Stats {
	if a == nil {
		return nil
	}
	out := make(map[string]circuitbreaker.Stats, len(a.backends))
	for _, b := range a.backends {
		out[b.provider.Name()] = b.breaker.Stats()
	}
	return out
}

// Analyze asks the providers in order for a structured assessment of
// content. deadline bounds the whole call; zero uses the configured
// default. When every provider fails the returned LayerResult is the
// conservative fallback and err says why (wrapping ErrLMTimeout or
// ErrLMUnavailable). The result is always usable.
func (a *Analyzer) Analyze(
	ctx context.Context,
	content domain.ContentItem,
	profile domain.SafetyProfile,
	deadline time.Duration,
) (domain.LayerResult, error) {
	if deadline <= 0 {
		deadline = a.cfg.Deadline
	}
	start := time.Now()
	defer func() {
		a.telemetry.M().ObserveLayer(string(domain.LayerLanguageModel), time.Since(start))
	}()

	ctx, span := a.telemetry.StartSpan(ctx, "lmanalyzer.Analyze",
		attribute.String("content.id", content.ID),
		attribute.String("profile.id", profile.ProfileID),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req := Request{
		System:    SystemPrompt(profile),
		Prompt:    UserPrompt(content, profile),
		MaxTokens: a.cfg.MaxTokens,
	}

	var errs []error
	for _, b := range a.backends {
		if ctx.Err() != nil {
			break
		}
		analysis, err := a.call(ctx, b, req)
		if err == nil {
			span.SetAttributes(attribute.String("lm.provider", b.provider.Name()))
			return toLayerResult(analysis, profile, b.provider.Name()), nil
		}
		a.log.Warn("Language model provider failed",
			logger.String("provider", b.provider.Name()),
			logger.String("content_id", content.ID),
			logger.Error(err),
		)
		errs = append(errs, err)
	}

	err := a.failure(ctx, deadline, errs)
	span.RecordError(err)
	span.SetStatus(codes.Error, "language model fallback")
	a.telemetry.M().LayerError(string(domain.LayerLanguageModel), fallbackKind(err))
	return Fallback(err), err
}

func (a *Analyzer) call(ctx context.Context, b *backend, req Request) (Analysis, error) {
	name := b.provider.Name()
	rcfg := a.cfg.Retry
	rcfg.IsRetryable = isRetryable
	rcfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		a.log.Debug("Retrying language model call",
			logger.String("provider", name),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
	}

	var analysis Analysis
	err := retry.Do(ctx, rcfg, func(ctx context.Context) error {
		if err := b.limiter.Wait(ctx); err != nil {
			return &ProviderError{Provider: name, Kind: ErrKindTimeout, Err: err}
		}
		return b.breaker.Execute(ctx, func(ctx context.Context) error {
			callStart := time.Now()
			raw, err := b.provider.Complete(ctx, req)
			if err != nil {
				a.telemetry.M().ObserveLMCall(name, callOutcome(err), time.Since(callStart))
				return err
			}
			analysis, err = ValidateAndRepair(raw)
			if err != nil {
				a.telemetry.M().ObserveLMCall(name, "malformed", time.Since(callStart))
				return err
			}
			a.telemetry.M().ObserveLMCall(name, "success", time.Since(callStart))
			if len(analysis.Repairs) > 0 {
				a.log.Debug("Repaired language model output",
					logger.String("provider", name),
					logger.Strings("repairs", analysis.Repairs),
				)
			}
			return nil
		})
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		a.telemetry.M().ObserveLMCall(name, "circuit_open", 0)
	}
	return analysis, err
}

func (a *Analyzer) failure(ctx context.Context, deadline time.Duration, errs []error) error {
	cause := errors.Join(errs...)
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %w", domain.ErrLMTimeout, deadline, ctx.Err())
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", domain.ErrLMUnavailable, ctx.Err())
	case len(errs) == 0:
		return fmt.Errorf("%w: no providers configured", domain.ErrLMUnavailable)
	default:
		return fmt.Errorf("%w: %w", domain.ErrLMUnavailable, cause)
	}
}

// Fallback is the conservative stand-in used when no provider answered:
// a neutral score with low confidence so the policy leans to caution.
func Fallback(cause error) domain.LayerResult {
	reason := "language model unavailable"
	if cause != nil {
		reason += ": " + fallbackKind(cause)
	}
	return domain.LayerResult{
		Layer:         domain.LayerLanguageModel,
		SafetyScore:   fallbackScore,
		Confidence:    fallbackConfidence,
		CategoryFlags: []string{FlagFallback},
		Reasoning:     reason,
		Fallback:      true,
	}
}

func fallbackKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrLMTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrLMMalformedOutput):
		return "malformed_output"
	default:
		return "unavailable"
	}
}

func callOutcome(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind.String()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout.String()
	}
	return ErrKindUnknown.String()
}

// toLayerResult converts a validated analysis into the layer's evidence.
func toLayerResult(a Analysis, profile domain.SafetyProfile, provider string) domain.LayerResult {
	flags := slices.Clone(a.CategoryFlags)
	addFlag := func(flag string, on bool) {
		if on && !slices.Contains(flags, flag) {
			flags = append(flags, flag)
		}
	}
	s := a.Safety
	addFlag(FlagAdultContent, s.AdultContent)
	addFlag(FlagViolence, s.ViolenceLevel >= violenceFlagThreshold)
	addFlag(FlagHateSpeech, s.HateSpeech >= hateSpeechFlagThreshold)
	addFlag(FlagMisinformation, s.MisinformationRisk >= misinformationFlagThreshold)
	addFlag(FlagAgeInappropriate, s.AgeAppropriateness.MinimumAge() > maxRatingAge(profile.AgeCategory))

	detail := map[string]any{
		"provider": provider,
		"safety":   s,
	}
	if a.Educational != nil {
		detail["educational"] = a.Educational
	}
	if a.Viewpoint != nil {
		detail["viewpoint"] = a.Viewpoint
	}
	if len(a.Repairs) > 0 {
		detail["repairs"] = a.Repairs
	}

	return domain.LayerResult{
		Layer:         domain.LayerLanguageModel,
		SafetyScore:   s.SafetyScore,
		CategoryFlags: flags,
		Confidence:    a.Confidence,
		Reasoning:     s.Reasoning,
		Detail:        detail,
	}.Clamp()
}

// maxRatingAge is the strictest age rating a viewer in the category may see.
func maxRatingAge(c domain.AgeCategory) int {
	switch c {
	case domain.AgeUnder13:
		return AgeRating7.MinimumAge()
	case domain.AgeUnder16:
		return AgeRating13.MinimumAge()
	case domain.AgeUnder18:
		return AgeRating16.MinimumAge()
	default:
		return AgeRating18.MinimumAge()
	}
}
