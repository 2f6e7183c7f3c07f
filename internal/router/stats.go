package router

import (
	"maps"
	"sync"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

// Stats are running counters since start-up.
type Stats struct {
	TotalRequests         int64            `json:"total_requests"`
	ByAction              map[string]int64 `json:"by_action"`
	ByStrategy            map[string]int64 `json:"by_strategy"`
	AverageProcessingMs   float64          `json:"average_processing_ms"`
	LanguageModelCalls    int64            `json:"language_model_calls"`
	LanguageModelFailures int64            `json:"language_model_failures"`
	CacheHits             int64            `json:"cache_hits"`
	CacheHitRate          float64          `json:"cache_hit_rate"`
}

type counters struct {
	mu         sync.Mutex
	total      int64
	byAction   map[string]int64
	byStrategy map[string]int64
	totalMs    int64
	lmCalls    int64
	cacheHits  int64
	lmFailures int64
}

func newCounters() *counters {
	return &counters{byAction: map[string]int64{}, byStrategy: map[string]int64{}}
}

func (c *counters) record(d domain.CurationDecision, strategy Strategy, usedLM, lmFailed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	c.byAction[string(d.Action)]++
	c.byStrategy[string(strategy)]++
	c.totalMs += d.ProcessingTimeMs
	if usedLM {
		c.lmCalls++
		if d.Cached {
			c.cacheHits++
		}
	}
	if lmFailed {
		c.lmFailures++
	}
}

func (c *counters) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		TotalRequests:         c.total,
		ByAction:              make(map[string]int64, len(c.byAction)),
		ByStrategy:            make(map[string]int64, len(c.byStrategy)),
		LanguageModelCalls:    c.lmCalls,
		CacheHits:             c.cacheHits,
		LanguageModelFailures: c.lmFailures,
	}
	maps.Copy(s.ByAction, c.byAction)
	maps.Copy(s.ByStrategy, c.byStrategy)
	if c.total > 0 {
		s.AverageProcessingMs = float64(c.totalMs) / float64(c.total)
	}
	if c.lmCalls > 0 {
		s.CacheHitRate = float64(c.cacheHits) / float64(c.lmCalls)
	}
	return s
}
