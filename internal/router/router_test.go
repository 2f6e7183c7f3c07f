package router_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/circuitbreaker"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/retry"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/audit"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/fastfilter"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/lmanalyzer"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/lmanalyzer/mocks"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/policy"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/profile"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/resultcache"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/router"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/specialized"
)

var (
	strictChild = domain.SafetyProfile{
		ProfileID:   "child-strict",
		AgeCategory: domain.AgeUnder13,
		SafetyLevel: domain.SafetyStrict,
	}
	minimalAdult = domain.SafetyProfile{
		ProfileID:   "adult-minimal",
		AgeCategory: domain.AgeAdult,
		SafetyLevel: domain.SafetyMinimal,
	}
	moderateAdult = domain.SafetyProfile{
		ProfileID:   "adult-moderate",
		AgeCategory: domain.AgeAdult,
		SafetyLevel: domain.SafetyModerate,
	}
)

type fakeClassifier struct {
	res   domain.LayerResult
	err   error
	panic bool
	calls atomic.Int32
}

func (f *fakeClassifier) Classify(context.Context, domain.ContentItem) (domain.LayerResult, error) {
	f.calls.Add(1)
	if f.panic {
		panic("classifier exploded")
	}
	return f.res, f.err
}

// fakeAnalyzer answers with res. When gate is set it signals started and
// waits for gate to close before answering.
type fakeAnalyzer struct {
	res     domain.LayerResult
	delay   time.Duration
	gate    chan struct{}
	started chan struct{}
	calls   atomic.Int32
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, _ domain.ContentItem, _ domain.SafetyProfile, _ time.Duration) (domain.LayerResult, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return lmanalyzer.Fallback(ctx.Err()), ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.res, nil
}

func (f *fakeAnalyzer) Available() bool { return true }

type recordingSink struct {
	mu      sync.Mutex
	records []audit.Record
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(_ context.Context, r audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *recordingSink) all() []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Record(nil), s.records...)
}

type fixture struct {
	classifier *fakeClassifier
	analyzer   *fakeAnalyzer
	sink       *recordingSink
	router     *router.Router
}

func lmResult(score, confidence float64) domain.LayerResult {
	return domain.LayerResult{
		Layer:       domain.LayerLanguageModel,
		SafetyScore: score,
		Confidence:  confidence,
		Reasoning:   "model assessment",
	}
}

func newFixture(t *testing.T, strategy router.Strategy, classifier *fakeClassifier, analyzer *fakeAnalyzer) *fixture {
	t.Helper()

	r, sink := newRouter(t, strategy, classifier, analyzer)
	return &fixture{classifier: classifier, analyzer: analyzer, sink: sink, router: r}
}

func newRouter(t *testing.T, strategy router.Strategy, classifier router.Classifier, analyzer router.Analyzer) (*router.Router, *recordingSink) {
	t.Helper()

	filter, err := fastfilter.New(fastfilter.DefaultRules(), logger.NewNop(), nil)
	require.NoError(t, err)
	engine, err := policy.New(policy.Config{})
	require.NoError(t, err)
	profiles, err := profile.NewStatic([]domain.SafetyProfile{strictChild, minimalAdult, moderateAdult})
	require.NoError(t, err)

	sink := &recordingSink{}
	cache := resultcache.New(
		resultcache.Config{Enabled: true, TTL: time.Hour},
		resultcache.NewMemStore(100, time.Hour),
		logger.NewNop(), nil,
	)

	r, err := router.New(router.Config{LMDeadline: time.Second}, router.Deps{
		Filter:     filter,
		Classifier: classifier,
		Analyzer:   analyzer,
		Cache:      cache,
		Policy:     engine,
		Profiles:   profiles,
		Audit:      sink,
		Holder:     router.NewStrategyHolder(strategy),
		Logger:     logger.NewNop(),
	})
	require.NoError(t, err)

	return r, sink
}

func TestRoute_DenylistHitBlocks(t *testing.T) {
	t.Parallel()

	for _, s := range router.Strategies() {
		t.Run(string(s), func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, s, &fakeClassifier{}, &fakeAnalyzer{res: lmResult(1, 1)})

			d, err := f.router.Route(context.Background(),
				domain.ContentItem{ID: "c-1", Text: "click http://known-bad.example/x"}, moderateAdult.ProfileID, "")
			require.NoError(t, err)

			assert.Equal(t, domain.ActionBlock, d.Action)
			assert.Equal(t, domain.ReasonMatchedDenylist, d.Reason)
			assert.InDelta(t, 1.0, d.Confidence, 1e-9)
			assert.Less(t, d.ProcessingTimeMs, int64(100))
			assert.Equal(t, []string{string(domain.LayerFastFilter)}, d.LayerNames())
			assert.Zero(t, f.classifier.calls.Load())
			assert.Zero(t, f.analyzer.calls.Load())
		})
	}
}

func TestRoute_DenylistOverridesSafeModel(t *testing.T) {
	t.Parallel()
	f := newFixture(t, router.LLMOnly, &fakeClassifier{}, &fakeAnalyzer{res: lmResult(1, 1)})

	d, err := f.router.Route(context.Background(),
		domain.ContentItem{Text: "I will kill you"}, minimalAdult.ProfileID, "")
	require.NoError(t, err)

	assert.Equal(t, domain.ActionBlock, d.Action)
	assert.Zero(t, f.analyzer.calls.Load())
}

func TestRoute_MultiLayerConfidentSpecializedSkipsModel(t *testing.T) {
	t.Parallel()
	classifier := &fakeClassifier{res: domain.LayerResult{
		Layer: domain.LayerSpecialized, SafetyScore: 0.95, Confidence: 0.9, Reasoning: "benign",
	}}
	f := newFixture(t, router.MultiLayer, classifier, &fakeAnalyzer{res: lmResult(0.1, 1)})

	d, err := f.router.Route(context.Background(),
		domain.ContentItem{Text: "Photosynthesis turns sunlight into chemical energy."}, minimalAdult.ProfileID, "")
	require.NoError(t, err)

	assert.Equal(t, domain.ActionAllow, d.Action)
	assert.Equal(t, string(router.MultiLayer), d.StrategyUsed)
	assert.Equal(t, []string{string(domain.LayerSpecialized)}, d.LayerNames())
	assert.Zero(t, f.analyzer.calls.Load())
}

func TestRoute_MultiLayerUnsureButSimpleSkipsModel(t *testing.T) {
	t.Parallel()
	classifier := &fakeClassifier{res: domain.LayerResult{
		Layer: domain.LayerSpecialized, SafetyScore: 0.9, Confidence: 0.5,
	}}
	f := newFixture(t, router.MultiLayer, classifier, &fakeAnalyzer{res: lmResult(0.9, 0.9)})

	_, err := f.router.Route(context.Background(),
		domain.ContentItem{Text: "The cat sat on the mat."}, minimalAdult.ProfileID, "")
	require.NoError(t, err)
	assert.Zero(t, f.analyzer.calls.Load())
}

func TestRoute_MultiLayerEscalatesWhenSpecializedFails(t *testing.T) {
	t.Parallel()
	classifier := &fakeClassifier{err: domain.ErrClassifierUnavailable}
	f := newFixture(t, router.MultiLayer, classifier, &fakeAnalyzer{res: lmResult(0.9, 0.8)})

	d, err := f.router.Route(context.Background(),
		domain.ContentItem{Text: "The cat sat on the mat."}, minimalAdult.ProfileID, "")
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.analyzer.calls.Load())
	assert.Equal(t, domain.ActionAllow, d.Action)
	assert.Contains(t, d.Errors, domain.ErrClassifierUnavailable.Error())
}

const politicalText = "The election debate is political: should the government change its policy?"

func TestRoute_HybridEscalatesAndBlocks(t *testing.T) {
	t.Parallel()
	classifier := &fakeClassifier{res: domain.LayerResult{
		Layer: domain.LayerSpecialized, SafetyScore: 0.9, Confidence: 0.4,
	}}
	f := newFixture(t, router.Hybrid, classifier, &fakeAnalyzer{res: lmResult(0.7, 0.8)})

	d, err := f.router.Route(context.Background(),
		domain.ContentItem{ID: "c-3", Text: politicalText}, strictChild.ProfileID, "")
	require.NoError(t, err)

	assert.Equal(t, domain.ActionBlock, d.Action)
	assert.InDelta(t, 0.4, d.Confidence, 1e-9)
	assert.Equal(t, string(router.Hybrid), d.StrategyUsed)
	assert.Contains(t, d.Reason, string(domain.LayerLanguageModel))
	assert.Equal(t, int32(1), f.analyzer.calls.Load())
	assert.False(t, d.Cached)
}

func TestRoute_RepeatWithinTTLIsCached(t *testing.T) {
	t.Parallel()
	classifier := &fakeClassifier{res: domain.LayerResult{
		Layer: domain.LayerSpecialized, SafetyScore: 0.9, Confidence: 0.4,
	}}
	f := newFixture(t, router.Hybrid, classifier, &fakeAnalyzer{res: lmResult(0.7, 0.8), delay: 20 * time.Millisecond})
	content := domain.ContentItem{ID: "c-4", Text: politicalText}

	first, err := f.router.Route(context.Background(), content, strictChild.ProfileID, "")
	require.NoError(t, err)
	second, err := f.router.Route(context.Background(), content, strictChild.ProfileID, "")
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.analyzer.calls.Load())
	assert.Equal(t, first.Action, second.Action)
	assert.Equal(t, first.Reason, second.Reason)
	assert.InDelta(t, first.Confidence, second.Confidence, 1e-9)
	assert.True(t, second.Cached)
	assert.LessOrEqual(t, second.ProcessingTimeMs, first.ProcessingTimeMs)

	stats := f.router.Stats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.InDelta(t, 0.5, stats.CacheHitRate, 1e-9)
}

func TestRoute_ConcurrentIdenticalRequestsShareOneModelCall(t *testing.T) {
	t.Parallel()
	f := newFixture(t, router.LLMOnly, &fakeClassifier{},
		&fakeAnalyzer{res: lmResult(0.9, 0.9), delay: 50 * time.Millisecond})
	content := domain.ContentItem{ID: "same", Text: "A documentary about coral reefs."}

	const callers = 20
	var wg sync.WaitGroup
	decisions := make([]domain.CurationDecision, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := f.router.Route(context.Background(), content, moderateAdult.ProfileID, "")
			assert.NoError(t, err)
			decisions[i] = d
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.analyzer.calls.Load())
	for _, d := range decisions {
		assert.Equal(t, domain.ActionAllow, d.Action)
	}
}

func TestRoute_ConcurrentKeywordClassification(t *testing.T) {
	t.Parallel()
	classifier := specialized.New(specialized.Config{}, nil, logger.NewNop(), nil)
	r, _ := newRouter(t, router.MultiLayer, classifier, &fakeAnalyzer{res: lmResult(0.9, 0.9)})
	content := domain.ContentItem{Text: "Les élèves étudient la photosynthèse à l'école après le déjeuner, ﬁnalement."}

	const (
		workers = 32
		rounds  = 50
	)
	var (
		wg       sync.WaitGroup
		failures atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				d, err := r.Route(context.Background(), content, minimalAdult.ProfileID, "")
				if err != nil || d.StrategyUsed != string(router.MultiLayer) || d.Action != domain.ActionAllow {
					failures.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
}

func TestRoute_SwitchDoesNotAffectInFlightRequest(t *testing.T) {
	t.Parallel()
	analyzer := &fakeAnalyzer{
		res:     lmResult(0.9, 0.9),
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	classifier := &fakeClassifier{res: domain.LayerResult{
		Layer: domain.LayerSpecialized, SafetyScore: 0.95, Confidence: 0.95,
	}}
	f := newFixture(t, router.LLMOnly, classifier, analyzer)

	done := make(chan domain.CurationDecision, 1)
	go func() {
		d, err := f.router.Route(context.Background(),
			domain.ContentItem{Text: "Rivers flow downhill."}, moderateAdult.ProfileID, "")
		assert.NoError(t, err)
		done <- d
	}()

	<-analyzer.started
	prev, err := f.router.SwitchStrategy("multi-layer")
	require.NoError(t, err)
	assert.Equal(t, router.LLMOnly, prev)
	close(analyzer.gate)

	inflight := <-done
	assert.Equal(t, string(router.LLMOnly), inflight.StrategyUsed)
	assert.Equal(t, []string{string(domain.LayerLanguageModel)}, inflight.LayerNames())

	next, err := f.router.Route(context.Background(),
		domain.ContentItem{Text: "Rivers flow downhill."}, moderateAdult.ProfileID, "")
	require.NoError(t, err)
	assert.Equal(t, string(router.MultiLayer), next.StrategyUsed)
	assert.Equal(t, int32(1), analyzer.calls.Load())
}

func TestRoute_ModelDeadlineFallsBackToCaution(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Name().Return("slow").AnyTimes()
	provider.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ lmanalyzer.Request) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}).AnyTimes()

	analyzer := lmanalyzer.New(lmanalyzer.Config{
		Retry:   retry.Config{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
		Breaker: circuitbreaker.Config{FailureThreshold: 5, Timeout: time.Minute},
	}, []lmanalyzer.Provider{provider}, logger.NewNop(), nil)

	filter, err := fastfilter.New(fastfilter.DefaultRules(), logger.NewNop(), nil)
	require.NoError(t, err)
	engine, err := policy.New(policy.Config{})
	require.NoError(t, err)
	profiles, err := profile.NewStatic([]domain.SafetyProfile{minimalAdult})
	require.NoError(t, err)

	r, err := router.New(router.Config{Strategy: "llm_only", LMDeadline: 30 * time.Millisecond}, router.Deps{
		Filter:     filter,
		Classifier: &fakeClassifier{},
		Analyzer:   analyzer,
		Policy:     engine,
		Profiles:   profiles,
	})
	require.NoError(t, err)

	start := time.Now()
	d, err := r.Route(context.Background(), domain.ContentItem{Text: "Weather report for Tuesday."}, minimalAdult.ProfileID, "")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, domain.ActionCaution, d.Action)
	assert.LessOrEqual(t, d.Confidence, 0.5)
	assert.Contains(t, d.StrategyUsed, "fallback")
	assert.NotEmpty(t, d.Errors)
	assert.Equal(t, int64(1), r.Stats().LanguageModelFailures)
}

func TestRoute_UnknownProfileFailsClosed(t *testing.T) {
	t.Parallel()
	f := newFixture(t, router.Hybrid, &fakeClassifier{}, &fakeAnalyzer{})

	d, err := f.router.Route(context.Background(), domain.ContentItem{Text: "hello"}, "nobody", "")
	require.NoError(t, err)

	assert.Equal(t, domain.ActionBlock, d.Action)
	assert.Equal(t, domain.ReasonNoPolicyAvailable, d.Reason)
	assert.Empty(t, d.ContributingLayers)
	assert.Zero(t, f.classifier.calls.Load())
	assert.Zero(t, f.analyzer.calls.Load())
}

func TestRoute_UnknownOverrideRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t, router.Hybrid, &fakeClassifier{}, &fakeAnalyzer{})

	_, err := f.router.Route(context.Background(), domain.ContentItem{Text: "hello"}, moderateAdult.ProfileID, "fastest")
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Empty(t, f.sink.all())
}

func TestRoute_OverrideAppliesToOneRequest(t *testing.T) {
	t.Parallel()
	f := newFixture(t, router.MultiLayer, &fakeClassifier{res: domain.LayerResult{
		Layer: domain.LayerSpecialized, SafetyScore: 0.95, Confidence: 0.95,
	}}, &fakeAnalyzer{res: lmResult(0.9, 0.9)})

	d, err := f.router.Route(context.Background(), domain.ContentItem{Text: "hello"}, moderateAdult.ProfileID, "LLM_ONLY")
	require.NoError(t, err)
	assert.Equal(t, string(router.LLMOnly), d.StrategyUsed)
	assert.Equal(t, router.MultiLayer, f.router.ActiveStrategy())
}

func TestRoute_PanicBecomesCaution(t *testing.T) {
	t.Parallel()
	f := newFixture(t, router.Hybrid, &fakeClassifier{panic: true}, &fakeAnalyzer{})

	d, err := f.router.Route(context.Background(), domain.ContentItem{Text: "hello"}, moderateAdult.ProfileID, "")
	require.NoError(t, err)

	assert.Equal(t, domain.ActionCaution, d.Action)
	assert.Equal(t, router.StrategyErrorHandling, d.StrategyUsed)
	assert.Zero(t, d.Confidence)
	assert.Contains(t, d.Errors, "classifier exploded")
}

func TestRoute_WritesAuditRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(t, router.LLMOnly, &fakeClassifier{}, &fakeAnalyzer{res: lmResult(0.9, 0.7)})

	d, err := f.router.Route(context.Background(), domain.ContentItem{ID: "c-audit", Text: "hello"}, moderateAdult.ProfileID, "")
	require.NoError(t, err)

	records := f.sink.all()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "c-audit", rec.ContentID)
	assert.Equal(t, moderateAdult.ProfileID, rec.ProfileID)
	assert.Equal(t, d.Action, rec.Decision)
	assert.Equal(t, d.StrategyUsed, rec.StrategyUsed)
	assert.Equal(t, []string{string(domain.LayerLanguageModel)}, rec.LayerNames())
	assert.Equal(t, d.ContributingLayers, rec.ContributingLayers)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestRoute_MissingContentIDIsGenerated(t *testing.T) {
	t.Parallel()
	f := newFixture(t, router.LLMOnly, &fakeClassifier{}, &fakeAnalyzer{res: lmResult(0.9, 0.7)})

	_, err := f.router.Route(context.Background(), domain.ContentItem{Text: "hello"}, moderateAdult.ProfileID, "")
	require.NoError(t, err)

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Len(t, records[0].ContentID, 36)
}

func TestSwitchStrategy(t *testing.T) {
	t.Parallel()
	f := newFixture(t, router.Hybrid, &fakeClassifier{}, &fakeAnalyzer{})

	_, err := f.router.SwitchStrategy("fastest")
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, router.Hybrid, f.router.ActiveStrategy())

	prev, err := f.router.SwitchStrategy("llm_only")
	require.NoError(t, err)
	assert.Equal(t, router.Hybrid, prev)

	info := f.router.StrategyInfo()
	assert.Equal(t, router.LLMOnly, info.StrategyType)
	assert.Equal(t, "LLM-Only Strategy", info.StrategyName)
	assert.True(t, info.LMAvailable)
	assert.Equal(t, router.Strategies(), info.AvailableStrategies)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := router.New(router.Config{}, router.Deps{})
	require.Error(t, err)

	engine, err := policy.New(policy.Config{})
	require.NoError(t, err)
	filter, err := fastfilter.New(nil, logger.NewNop(), nil)
	require.NoError(t, err)
	deps := router.Deps{
		Filter:     filter,
		Classifier: &fakeClassifier{},
		Policy:     engine,
		Profiles:   profile.Chain{},
	}

	_, err = router.New(router.Config{Strategy: "fastest"}, deps)
	require.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = router.New(router.Config{HighConfidenceThreshold: 1.5}, deps)
	require.ErrorIs(t, err, domain.ErrConfiguration)

	r, err := router.New(router.Config{}, deps)
	require.NoError(t, err)
	assert.Equal(t, router.Hybrid, r.ActiveStrategy())
	assert.False(t, r.StrategyInfo().LMAvailable)

	d, err := r.Route(context.Background(), domain.ContentItem{Text: "x"}, "p", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBlock, d.Action)
	assert.Equal(t, domain.ReasonNoPolicyAvailable, d.Reason)
}
