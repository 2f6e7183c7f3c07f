package router

import (
	"strings"
	"sync/atomic"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

// Strategy selects the pipeline a request runs through.
type Strategy string

const (
	// LLMOnly always consults the language model after the fast filter.
	LLMOnly Strategy = "llm_only"
	// MultiLayer consults the language model only when the specialized
	// classifier is unsure and the content looks complex.
	MultiLayer Strategy = "multi_layer"
	// Hybrid consults the language model when the specialized classifier
	// is unsure or the content is ambiguous.
	Hybrid Strategy = "hybrid"
)

// Strategies lists every strategy in display order.
func Strategies() []Strategy {
	return []Strategy{LLMOnly, MultiLayer, Hybrid}
}

// DisplayName is the human readable strategy name.
func (s Strategy) DisplayName() string {
	switch s {
	case LLMOnly:
		return "LLM-Only Strategy"
	case MultiLayer:
		return "Multi-Layer Strategy"
	case Hybrid:
		return "Hybrid Strategy"
	default:
		return string(s)
	}
}

// ParseStrategy accepts a strategy name in any case, with dashes or
// underscores.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	switch s {
	case LLMOnly, MultiLayer, Hybrid:
		return s, nil
	}
	return "", &domain.ConfigurationError{Setting: "strategy", Value: name, Reason: "unknown strategy"}
}

// StrategyHolder owns the active strategy. Reads are lock-free; a swap only
// affects requests that read the holder afterwards.
type StrategyHolder struct {
	active atomic.Pointer[Strategy]
}

// NewStrategyHolder starts with initial.
func NewStrategyHolder(initial Strategy) *StrategyHolder {
	h := &StrategyHolder{}
	h.active.Store(&initial)
	return h
}

// Load returns the active strategy.
func (h *StrategyHolder) Load() Strategy {
	return *h.active.Load()
}

// Swap installs s and returns the previous strategy.
func (h *StrategyHolder) Swap(s Strategy) Strategy {
	return *h.active.Swap(&s)
}
