// Package router runs content through the curation layers chosen by the
// active strategy and hands the evidence to the policy engine.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/audit"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/lmanalyzer"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/profile"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/resultcache"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/telemetry"
)

// StrategyErrorHandling marks decisions produced after an internal failure.
const StrategyErrorHandling = "error_handling"

// fallbackSuffix is appended to StrategyUsed when the language model layer
// was replaced by its fallback.
const fallbackSuffix = "+fallback"

// FastFilter is the deterministic denylist layer.
type FastFilter interface {
	Check(content domain.ContentItem) *domain.LayerResult
}

// Classifier is the specialized layer.
type Classifier interface {
	Classify(ctx context.Context, content domain.ContentItem) (domain.LayerResult, error)
}

// Analyzer is the language model layer. Analyze always returns a usable
// result; a non-nil error means it is the fallback.
type Analyzer interface {
	Analyze(ctx context.Context, content domain.ContentItem, profile domain.SafetyProfile, deadline time.Duration) (domain.LayerResult, error)
	Available() bool
}

// Cache memoises language model results.
type Cache interface {
	Key(ctx context.Context, content domain.ContentItem, profile domain.SafetyProfile, strategy string) string
	GetOrCompute(ctx context.Context, key string, compute resultcache.ComputeFunc, ttl time.Duration) (domain.LayerResult, bool, error)
}

// Decider is the policy engine.
type Decider interface {
	Decide(content domain.ContentItem, profile domain.SafetyProfile, results []domain.LayerResult) domain.CurationDecision
}

// Config tunes routing.
type Config struct {
	Strategy string `env:"PIPELINE_STRATEGY" yaml:"strategy"`
	// HighConfidenceThreshold lets layered strategies decide without the
	// language model.
	HighConfidenceThreshold float64       `yaml:"high_confidence_threshold"`
	LMDeadline              time.Duration `env:"LM_DEADLINE" yaml:"lm_deadline"`
	CacheTTL                time.Duration `yaml:"cache_ttl"`
}

const (
	defaultHighConfidenceThreshold = 0.85
	defaultLMDeadline              = 12 * time.Second
)

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = string(Hybrid)
	}
	if c.HighConfidenceThreshold == 0 {
		c.HighConfidenceThreshold = defaultHighConfidenceThreshold
	}
	if c.LMDeadline <= 0 {
		c.LMDeadline = defaultLMDeadline
	}
}

// Deps are the collaborators a Router needs. Filter, Classifier, Policy and
// Profiles are required; a nil Analyzer always falls back, a nil Cache and
// a nil Audit are skipped.
type Deps struct {
	Filter     FastFilter
	Classifier Classifier
	Analyzer   Analyzer
	Cache      Cache
	Policy     Decider
	Profiles   profile.Provider
	Audit      audit.Sink
	Holder     *StrategyHolder
	Logger     logger.Logger
	Telemetry  *telemetry.Provider
}

// Router is safe for concurrent use.
type Router struct {
	cfg        Config
	filter     FastFilter
	classifier Classifier
	analyzer   Analyzer
	cache      Cache
	policy     Decider
	profiles   profile.Provider
	audit      audit.Sink
	holder     *StrategyHolder
	log        logger.Logger
	telemetry  *telemetry.Provider

	pipelines map[Strategy]pipelineFunc
	counters  *counters
	now       func() time.Time
}

// New validates cfg and deps. Without an injected holder one is created
// from cfg.Strategy.
func New(cfg Config, deps Deps) (*Router, error) {
	cfg.SetDefaults()
	if cfg.HighConfidenceThreshold < 0 || cfg.HighConfidenceThreshold > 1 {
		return nil, &domain.ConfigurationError{
			Setting: "pipeline.high_confidence_threshold",
			Value:   fmt.Sprint(cfg.HighConfidenceThreshold),
			Reason:  "must be within [0,1]",
		}
	}
	if deps.Filter == nil || deps.Classifier == nil || deps.Policy == nil || deps.Profiles == nil {
		return nil, errors.New("router: filter, classifier, policy and profiles are required")
	}

	holder := deps.Holder
	if holder == nil {
		initial, err := ParseStrategy(cfg.Strategy)
		if err != nil {
			return nil, err
		}
		holder = NewStrategyHolder(initial)
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	r := &Router{
		cfg:        cfg,
		filter:     deps.Filter,
		classifier: deps.Classifier,
		analyzer:   deps.Analyzer,
		cache:      deps.Cache,
		policy:     deps.Policy,
		profiles:   deps.Profiles,
		audit:      deps.Audit,
		holder:     holder,
		log:        log,
		telemetry:  deps.Telemetry,
		counters:   newCounters(),
		now:        time.Now,
	}
	r.pipelines = newRegistry(r)
	r.telemetry.M().StrategySwitched("", string(holder.Load()))
	return r, nil
}

// Route decides on content for the profile. override, when non-empty,
// replaces the active strategy for this request only; an unknown override
// is the only error. Every other failure resolves into the returned
// decision.
func (r *Router) Route(ctx context.Context, content domain.ContentItem, profileID, override string) (domain.CurationDecision, error) {
	strategy := r.holder.Load()
	if override != "" {
		s, err := ParseStrategy(override)
		if err != nil {
			return domain.CurationDecision{}, err
		}
		strategy = s
	}
	if content.ID == "" {
		content.ID = uuid.NewString()
	}

	ctx, span := r.telemetry.StartSpan(ctx, "router.Route",
		attribute.String("content.id", content.ID),
		attribute.String("profile.id", profileID),
		attribute.String("strategy", string(strategy)),
	)
	defer span.End()

	start := r.now()
	run := &run{content: content, strategy: strategy}
	decision := r.decide(ctx, run, profileID)
	decision.SetElapsed(start)

	span.SetAttributes(attribute.String("decision.action", string(decision.Action)))
	r.telemetry.M().ObserveDecision(string(decision.Action), decision.StrategyUsed, time.Since(start))
	r.counters.record(decision, strategy, run.usedLM, run.lmFailed)
	r.writeAudit(ctx, content.ID, profileID, decision)

	return decision, nil
}

// decide never panics; an unexpected failure becomes a caution decision.
func (r *Router) decide(ctx context.Context, run *run, profileID string) (decision domain.CurationDecision) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Curation pipeline failed",
				logger.String("content_id", run.content.ID),
				logger.String("strategy", string(run.strategy)),
				logger.Any("panic", rec),
			)
			decision = domain.CurationDecision{
				Action:             domain.ActionCaution,
				Reason:             "internal error during curation",
				Confidence:         0,
				StrategyUsed:       StrategyErrorHandling,
				ContributingLayers: run.results,
				Errors:             append(run.errs, fmt.Sprint(rec)),
			}
		}
	}()

	prof, err := r.profiles.GetProfile(ctx, profileID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			r.log.Error("Profile lookup failed", logger.String("profile_id", profileID), logger.Error(err))
		}
		return domain.CurationDecision{
			Action:       domain.ActionBlock,
			Reason:       domain.ReasonNoPolicyAvailable,
			Confidence:   1,
			StrategyUsed: string(run.strategy),
			Errors:       []string{err.Error()},
		}
	}
	run.profile = prof

	if hit := r.filter.Check(run.content); hit != nil {
		run.results = append(run.results, *hit)
	} else {
		r.pipelines[run.strategy](ctx, run)
	}

	decision = r.policy.Decide(run.content, prof, run.results)
	decision.StrategyUsed = string(run.strategy)
	if run.lmFailed {
		decision.StrategyUsed += fallbackSuffix
	}
	decision.Cached = run.cached
	decision.Errors = append(decision.Errors, run.errs...)
	return decision
}

func (r *Router) writeAudit(ctx context.Context, contentID, profileID string, d domain.CurationDecision) {
	if r.audit == nil {
		return
	}
	// The request may already be cancelled; the record is still written.
	if err := r.audit.Write(context.WithoutCancel(ctx), audit.NewRecord(contentID, profileID, d, r.now())); err != nil {
		r.log.Warn("Audit write incomplete", logger.String("content_id", contentID), logger.Error(err))
	}
}

// SwitchStrategy makes name the active strategy for new requests. An
// unknown name leaves the current strategy in place.
func (r *Router) SwitchStrategy(name string) (Strategy, error) {
	s, err := ParseStrategy(name)
	if err != nil {
		return r.holder.Load(), err
	}
	prev := r.holder.Swap(s)
	if prev != s {
		r.telemetry.M().StrategySwitched(string(prev), string(s))
		r.log.Info("Switched curation strategy", logger.String("from", string(prev)), logger.String("to", string(s)))
	}
	return prev, nil
}

// ActiveStrategy is the strategy new requests will use.
func (r *Router) ActiveStrategy() Strategy { return r.holder.Load() }

// Info describes the active strategy for operators.
type Info struct {
	StrategyType        Strategy   `json:"strategy_type"`
	StrategyName        string     `json:"strategy_name"`
	LMAvailable         bool       `json:"lm_available"`
	AvailableStrategies []Strategy `json:"available_strategies"`
}

// StrategyInfo reports the active strategy and language model availability.
func (r *Router) StrategyInfo() Info {
	s := r.holder.Load()
	return Info{
		StrategyType:        s,
		StrategyName:        s.DisplayName(),
		LMAvailable:         r.analyzer != nil && r.analyzer.Available(),
		AvailableStrategies: Strategies(),
	}
}

// Stats returns the running counters.
func (r *Router) Stats() Stats { return r.counters.snapshot() }

// run is the per-request state the pipelines fill in.
type run struct {
	content  domain.ContentItem
	profile  domain.SafetyProfile
	strategy Strategy
	results  []domain.LayerResult
	errs     []string
	usedLM   bool
	lmFailed bool
	cached   bool
}

// runSpecialized appends the classifier's result and reports it, or
// records the failure and reports ok=false.
func (r *Router) runSpecialized(ctx context.Context, run *run) (domain.LayerResult, bool) {
	res, err := r.classifier.Classify(ctx, run.content)
	if err != nil {
		r.log.Warn("Specialized classifier unavailable, continuing without it",
			logger.String("content_id", run.content.ID),
			logger.Error(err),
		)
		run.errs = append(run.errs, err.Error())
		return domain.LayerResult{}, false
	}
	run.results = append(run.results, res)
	return res, true
}

func (r *Router) runLanguageModel(ctx context.Context, run *run) {
	run.usedLM = true

	compute := func(ctx context.Context) (domain.LayerResult, error) {
		if r.analyzer == nil {
			err := fmt.Errorf("%w: no analyzer configured", domain.ErrLMUnavailable)
			return lmanalyzer.Fallback(err), err
		}
		return r.analyzer.Analyze(ctx, run.content, run.profile, r.cfg.LMDeadline)
	}

	var (
		res    domain.LayerResult
		cached bool
		err    error
	)
	if r.cache != nil {
		key := r.cache.Key(ctx, run.content, run.profile, string(run.strategy))
		res, cached, err = r.cache.GetOrCompute(ctx, key, compute, r.cfg.CacheTTL)
	} else {
		res, err = compute(ctx)
	}

	if err != nil {
		if res.Layer == "" {
			res = lmanalyzer.Fallback(err)
		}
		run.errs = append(run.errs, err.Error())
	}
	if res.Fallback {
		run.lmFailed = true
	}
	run.cached = cached
	run.results = append(run.results, res)
}
