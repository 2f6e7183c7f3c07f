package router

import (
	"context"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/specialized"
)

// pipelineFunc runs the layers after the fast filter let content through.
type pipelineFunc func(ctx context.Context, run *run)

// newRegistry binds every Strategy to its pipeline.
func newRegistry(r *Router) map[Strategy]pipelineFunc {
	return map[Strategy]pipelineFunc{
		LLMOnly:    r.llmOnly,
		MultiLayer: r.multiLayer,
		Hybrid:     r.hybrid,
	}
}

func (r *Router) llmOnly(ctx context.Context, run *run) {
	r.runLanguageModel(ctx, run)
}

// multiLayer asks the language model only when the classifier is unsure
// and the content shows complexity cues.
func (r *Router) multiLayer(ctx context.Context, run *run) {
	res, ok := r.runSpecialized(ctx, run)
	if ok && res.Confidence >= r.cfg.HighConfidenceThreshold {
		return
	}
	signals := specialized.Assess(run.content.Text, run.profile)
	if ok && !signals.Complex() {
		return
	}
	r.escalate(ctx, run, signals, ok)
}

// hybrid asks the language model when the classifier is unsure or the
// content carries any ambiguity cue.
func (r *Router) hybrid(ctx context.Context, run *run) {
	res, ok := r.runSpecialized(ctx, run)
	signals := specialized.Assess(run.content.Text, run.profile)
	if ok && res.Confidence >= r.cfg.HighConfidenceThreshold && !signals.Ambiguous() {
		return
	}
	r.escalate(ctx, run, signals, ok)
}

func (r *Router) escalate(ctx context.Context, run *run, signals specialized.Signals, specializedOK bool) {
	r.log.Debug("Escalating to language model",
		logger.String("content_id", run.content.ID),
		logger.String("strategy", string(run.strategy)),
		logger.Strings("signals", signals.Names()),
		logger.Bool("specialized_ok", specializedOK),
	)
	r.runLanguageModel(ctx, run)
}
