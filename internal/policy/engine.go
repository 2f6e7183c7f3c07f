// Package policy turns layer evidence and a safety profile into a curation
// decision.
package policy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

// Band holds the score cut-offs for one safety level: below Block blocks,
// below Caution cautions, anything else is allowed.
type Band struct {
	Block   float64 `yaml:"block"`
	Caution float64 `yaml:"caution"`
}

// Config overrides the default bands per safety level.
type Config struct {
	Bands map[domain.SafetyLevel]Band `yaml:"bands"`
}

// DefaultBands are the cut-offs for each safety level.
func DefaultBands() map[domain.SafetyLevel]Band {
	return map[domain.SafetyLevel]Band{
		domain.SafetyStrict:   {Block: 0.8, Caution: 0.95},
		domain.SafetyModerate: {Block: 0.6, Caution: 0.8},
		domain.SafetyLenient:  {Block: 0.4, Caution: 0.6},
		domain.SafetyMinimal:  {Block: 0.4, Caution: 0.6},
	}
}

// Validate rejects bands outside [0,1] or with Caution below Block.
func (c Config) Validate() error {
	for level, b := range c.Bands {
		if !level.Valid() {
			return &domain.ConfigurationError{Setting: "policy.bands", Value: string(level), Reason: "unknown safety level"}
		}
		if b.Block < 0 || b.Caution > 1 || b.Caution < b.Block {
			return &domain.ConfigurationError{
				Setting: "policy.bands." + string(level),
				Value:   fmt.Sprintf("block=%g caution=%g", b.Block, b.Caution),
				Reason:  "need 0 <= block <= caution <= 1",
			}
		}
	}
	return nil
}

// Reasons with fixed wording.
const (
	ReasonNoEvidence      = "no_layer_evidence"
	ReasonBlockedCategory = "blocked_category"
	ReasonOutsideAllowed  = "category_not_allowed"
)

// Profiles with an unrecognised safety level are judged as strict.
const strictestLevel = domain.SafetyStrict

// Engine is stateless after construction and safe for concurrent use.
type Engine struct {
	bands map[domain.SafetyLevel]Band
}

// New returns an Engine with cfg's bands layered over the defaults.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bands := DefaultBands()
	for level, b := range cfg.Bands {
		bands[level] = b
	}
	return &Engine{bands: bands}, nil
}

// Decide applies, in order: a fast-filter deny wins outright; otherwise the
// lowest safety score among the layers that ran is mapped through the
// profile's band. Blocked categories escalate the action and categories
// outside a non-empty allow list downgrade allow to caution. Confidence is
// the least confident layer's. StrategyUsed is left to the caller.
func (e *Engine) Decide(_ domain.ContentItem, profile domain.SafetyProfile, results []domain.LayerResult) domain.CurationDecision {
	for _, r := range results {
		if r.ShortCircuit {
			return domain.CurationDecision{
				Action:             domain.ActionBlock,
				Reason:             domain.ReasonMatchedDenylist,
				Confidence:         1,
				ContributingLayers: results,
			}
		}
	}

	if len(results) == 0 {
		return domain.CurationDecision{
			Action:     domain.ActionCaution,
			Reason:     ReasonNoEvidence,
			Confidence: 0,
		}
	}

	// Fallback results stand in for a layer that did not answer. They carry
	// no score evidence but cap confidence and rule out allow.
	var (
		deciding   *domain.LayerResult
		fellBack   bool
		confidence = 1.0
	)
	for i := range results {
		r := &results[i]
		confidence = min(confidence, r.Confidence)
		if r.Fallback {
			fellBack = true
			continue
		}
		if deciding == nil || r.SafetyScore < deciding.SafetyScore {
			deciding = r
		}
	}
	flags := collectFlags(results)

	var action domain.Action
	var notes []string
	if deciding == nil {
		deciding = &results[0]
		action = domain.ActionCaution
	} else {
		action = e.band(profile.SafetyLevel, domain.Unit(deciding.SafetyScore))
	}
	if fellBack {
		action = atLeastCaution(action)
	}

	if blocked := matching(flags, profile.IsBlocked); len(blocked) > 0 {
		notes = append(notes, ReasonBlockedCategory+"="+strings.Join(blocked, ","))
		if profile.SafetyLevel == domain.SafetyStrict {
			action = domain.ActionBlock
		} else {
			action = atLeastCaution(action)
		}
	}
	if outside := matching(flags, func(f string) bool { return !profile.IsAllowed(f) }); len(outside) > 0 {
		notes = append(notes, ReasonOutsideAllowed+"="+strings.Join(outside, ","))
		action = atLeastCaution(action)
	}

	return domain.CurationDecision{
		Action:             action,
		Reason:             reason(*deciding, flags, notes),
		Confidence:         domain.Unit(confidence),
		ContributingLayers: results,
	}
}

func (e *Engine) band(level domain.SafetyLevel, score float64) domain.Action {
	b, ok := e.bands[level]
	if !ok {
		b = e.bands[strictestLevel]
	}
	switch {
	case score < b.Block:
		return domain.ActionBlock
	case score < b.Caution:
		return domain.ActionCaution
	default:
		return domain.ActionAllow
	}
}

func atLeastCaution(a domain.Action) domain.Action {
	if a == domain.ActionAllow {
		return domain.ActionCaution
	}
	return a
}

func collectFlags(results []domain.LayerResult) []string {
	var flags []string
	for _, r := range results {
		for _, f := range r.CategoryFlags {
			if !slices.Contains(flags, f) {
				flags = append(flags, f)
			}
		}
	}
	return flags
}

func matching(flags []string, pred func(string) bool) []string {
	var out []string
	for _, f := range flags {
		if pred(f) {
			out = append(out, f)
		}
	}
	return out
}

func reason(deciding domain.LayerResult, flags, notes []string) string {
	var b strings.Builder
	b.WriteString(string(deciding.Layer))
	if deciding.Reasoning != "" {
		b.WriteString(": ")
		b.WriteString(deciding.Reasoning)
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, " [flags: %s]", strings.Join(flags, ", "))
	}
	for _, n := range notes {
		fmt.Fprintf(&b, " [%s]", n)
	}
	return b.String()
}
