// Package fastfilter implements the deterministic denylist layer that runs
// before any classifier. A match short-circuits the pipeline with a block.
package fastfilter

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/telemetry"
)

var hostRe = regexp.MustCompile(`(?i)\b(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}\b`)

// Match names the rule that fired and the text that triggered it.
type Match struct {
	Rule     string `json:"rule"`
	Category string `json:"category"`
	Term     string `json:"term"`
}

// Filter matches content against the denylist. Rules can be swapped at
// runtime with UpdateRules.
type Filter struct {
	mu      sync.RWMutex
	set     *compiled
	matcher *ahocorasick.Matcher

	log       logger.Logger
	telemetry *telemetry.Provider
}

// New compiles rules into a Filter.
func New(rules []Rule, log logger.Logger, tp *telemetry.Provider) (*Filter, error) {
	set, err := compile(rules)
	if err != nil {
		return nil, err
	}
	f := &Filter{log: log, telemetry: tp}
	f.swapLocked(set)

	log.Info("fast filter initialized",
		logger.Int("rules", len(set.rules)),
		logger.Int("keywords", len(set.keywords)),
		logger.Int("patterns", len(set.patterns)),
		logger.Int("hosts", len(set.hosts)),
	)
	return f, nil
}

func (f *Filter) swapLocked(set *compiled) {
	f.set = set
	if len(set.keywords) > 0 {
		f.matcher = ahocorasick.NewStringMatcher(set.keywords)
	} else {
		f.matcher = nil
	}
}

// UpdateRules replaces the denylist. Invalid rules are rejected and the
// current denylist stays in effect.
func (f *Filter) UpdateRules(rules []Rule) error {
	set, err := compile(rules)
	if err != nil {
		f.telemetry.M().DenylistReload("rejected")
		return err
	}

	f.mu.Lock()
	f.swapLocked(set)
	f.mu.Unlock()

	f.telemetry.M().DenylistReload("applied")
	f.log.Info("fast filter rules updated",
		logger.Int("rules", len(set.rules)),
		logger.Int("keywords", len(set.keywords)),
	)
	return nil
}

// RuleCount returns the number of enabled rules.
func (f *Filter) RuleCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.set.rules)
}

// Matches returns every denylist hit in text, ordered by rule name.
func (f *Filter) Matches(text string) []Match {
	folded := foldText(text)

	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []Match
	seen := make(map[string]bool)
	add := func(rule *Rule, term string) {
		key := rule.Name + "\x00" + term
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Match{Rule: rule.Name, Category: rule.Category, Term: term})
	}

	if f.matcher != nil {
		for _, idx := range f.matcher.Match([]byte(wordText(folded))) {
			kw := f.set.keywords[idx]
			for _, rule := range f.set.kwRules[kw] {
				add(rule, strings.TrimSpace(kw))
			}
		}
	}

	for _, p := range f.set.patterns {
		if loc := p.re.FindString(folded); loc != "" {
			add(p.rule, loc)
		}
	}

	if len(f.set.hosts) > 0 {
		for _, host := range hostRe.FindAllString(folded, -1) {
			if rule, term := f.lookupHost(host); rule != nil {
				add(rule, term)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Match) int { return strings.Compare(a.Rule, b.Rule) })
	return out
}

// lookupHost matches host or any parent domain of it.
func (f *Filter) lookupHost(host string) (*Rule, string) {
	for h := host; h != ""; {
		if rule, ok := f.set.hosts[h]; ok {
			return rule, h
		}
		_, rest, found := strings.Cut(h, ".")
		if !found {
			break
		}
		h = rest
	}
	return nil, ""
}

// Check returns nil when nothing matched ("no opinion"), otherwise a
// short-circuit block result with safety score 0 and confidence 1.
func (f *Filter) Check(content domain.ContentItem) *domain.LayerResult {
	start := time.Now()
	matches := f.Matches(content.Text)
	f.telemetry.M().ObserveLayer(string(domain.LayerFastFilter), time.Since(start))

	if len(matches) == 0 {
		return nil
	}

	categories := make([]string, 0, len(matches))
	rules := make([]string, 0, len(matches))
	for _, m := range matches {
		f.telemetry.M().FilterMatch(m.Category)
		if !slices.Contains(categories, m.Category) {
			categories = append(categories, m.Category)
		}
		if !slices.Contains(rules, m.Rule) {
			rules = append(rules, m.Rule)
		}
	}

	return &domain.LayerResult{
		Layer:         domain.LayerFastFilter,
		SafetyScore:   0,
		Confidence:    1,
		CategoryFlags: categories,
		Reasoning:     fmt.Sprintf("matched denylist rules: %s", strings.Join(rules, ", ")),
		ShortCircuit:  true,
		Detail:        map[string]any{"matches": matches},
	}
}
