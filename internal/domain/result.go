package domain

import (
	"math"
	"time"
)

// Layer identifies a pipeline stage.
type Layer string

const (
	LayerFastFilter    Layer = "fast_filter"
	LayerSpecialized   Layer = "specialized"
	LayerLanguageModel Layer = "language_model"
)

// LayerResult is the evidence one layer produced.
type LayerResult struct {
	Layer         Layer    `json:"layer"`
	SafetyScore   float64  `json:"safety_score"`
	CategoryFlags []string `json:"category_flags,omitempty"`
	Confidence    float64  `json:"confidence"`
	Reasoning     string   `json:"reasoning"`
	// ShortCircuit marks a fast-filter deny that overrides every other layer.
	ShortCircuit bool `json:"short_circuit,omitempty"`
	// Fallback marks a synthetic result standing in for an unavailable layer.
	Fallback bool `json:"fallback,omitempty"`
	// Detail carries layer-specific sub-scores for audit and API output.
	Detail map[string]any `json:"detail,omitempty"`
}

// Clamp forces score and confidence into [0,1]. NaN becomes 0.
func (r LayerResult) Clamp() LayerResult {
	r.SafetyScore = Unit(r.SafetyScore)
	r.Confidence = Unit(r.Confidence)
	return r
}

// Unit clamps v into [0,1].
func Unit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Action is the final verdict.
type Action string

const (
	ActionAllow           Action = "allow"
	ActionCaution         Action = "caution"
	ActionBlock           Action = "block"
	ActionRequireApproval Action = "require_approval"
)

// Reasons with fixed wording that callers match on.
const (
	ReasonMatchedDenylist   = "matched_denylist"
	ReasonNoPolicyAvailable = "no_policy_available"
)

// CurationDecision is the pipeline output.
type CurationDecision struct {
	Action             Action        `json:"action"`
	Reason             string        `json:"reason"`
	Confidence         float64       `json:"confidence"`
	StrategyUsed       string        `json:"strategy_used"`
	ContributingLayers []LayerResult `json:"contributing_layers"`
	ProcessingTimeMs   int64         `json:"processing_time_ms"`
	// Cached is set when the language model result came from the cache.
	Cached bool `json:"cached,omitempty"`
	// Errors lists recoverable failures hit while deciding.
	Errors []string `json:"errors,omitempty"`
}

// LayerNames returns the contributing layer names in order.
func (d CurationDecision) LayerNames() []string {
	names := make([]string, len(d.ContributingLayers))
	for i, r := range d.ContributingLayers {
		names[i] = string(r.Layer)
	}
	return names
}

// SetElapsed records processing time since start.
func (d *CurationDecision) SetElapsed(start time.Time) {
	d.ProcessingTimeMs = time.Since(start).Milliseconds()
}
