package bootstrap

import (
	"context"
	"fmt"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/circuitbreaker"
	infralogger "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/api"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/audit"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/config"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/fastfilter"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/lmanalyzer"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/policy"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/profile"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/resultcache"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/router"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/specialized"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/telemetry"
)

// Pipeline is the wired curation pipeline and the handles the admin API
// needs.
type Pipeline struct {
	Router   *router.Router
	Filter   *fastfilter.Filter
	Analyzer *lmanalyzer.Analyzer
	Cache    *resultcache.Cache

	denylist fastfilter.FileSource
	watch    bool
	log      infralogger.Logger
}

// BuildPipeline wires every layer from configuration.
func BuildPipeline(cfg *config.Config, infra *Infra, log infralogger.Logger, tp *telemetry.Provider) (*Pipeline, error) {
	source := fastfilter.FileSource{Path: cfg.FastFilter.DenylistFile, IncludeDefaults: cfg.FastFilter.UseDefaults()}
	rules, err := source.Load()
	if err != nil {
		return nil, fmt.Errorf("denylist: %w", err)
	}
	filter, err := fastfilter.New(rules, log, tp)
	if err != nil {
		return nil, fmt.Errorf("fast filter: %w", err)
	}

	var scorer specialized.Scorer = specialized.KeywordScorer{}
	if cfg.Specialized.RemoteURL != "" {
		scorer = specialized.NewRemoteScorer(cfg.Specialized.RemoteURL, cfg.Specialized.Timeout)
	}
	classifier := specialized.New(cfg.Specialized, scorer, log, tp)

	providers, err := lmanalyzer.NewProviders(cfg.LM, log)
	if err != nil {
		return nil, fmt.Errorf("language model providers: %w", err)
	}
	if len(providers) == 0 {
		log.Warn("No language model provider available, escalations will fall back")
	}
	analyzer := lmanalyzer.New(cfg.LM, providers, log, tp)

	var cache *resultcache.Cache
	if cfg.Cache.Enabled {
		cache = resultcache.New(cfg.Cache, cacheStore(cfg, infra), log, tp)
	}

	engine, err := policy.New(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	profiles, err := profileProvider(cfg, infra)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}

	deps := router.Deps{
		Filter:     filter,
		Classifier: classifier,
		Analyzer:   analyzer,
		Policy:     engine,
		Profiles:   profiles,
		Audit:      auditSink(cfg, infra, log, tp),
		Logger:     log,
		Telemetry:  tp,
	}
	// A nil *Cache must not become a non-nil interface.
	if cache != nil {
		deps.Cache = cache
	}

	r, err := router.New(cfg.Pipeline, deps)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	log.Info("Curation pipeline ready",
		infralogger.String("strategy", string(r.ActiveStrategy())),
		infralogger.Int("denylist_rules", filter.RuleCount()),
		infralogger.Int("lm_providers", len(providers)),
		infralogger.Bool("cache", cache != nil),
	)

	return &Pipeline{
		Router:   r,
		Filter:   filter,
		Analyzer: analyzer,
		Cache:    cache,
		denylist: source,
		watch:    cfg.FastFilter.Watch,
		log:      log,
	}, nil
}

// WatchDenylist reloads the denylist on file changes until ctx is done. It
// returns immediately when watching is off.
func (p *Pipeline) WatchDenylist(ctx context.Context) {
	if !p.watch || p.denylist.Path == "" {
		return
	}
	go func() {
		if err := fastfilter.NewWatcher(p.denylist, p.Filter, p.log).Run(ctx); err != nil {
			p.log.Error("Denylist watcher stopped", infralogger.Error(err))
		}
	}()
}

// APIDeps exposes the admin operations to the HTTP layer.
func (p *Pipeline) APIDeps() api.Deps {
	deps := api.Deps{
		ProviderStats: func() map[string]circuitbreaker.Stats { return p.Analyzer.ProviderStats() },
	}
	if p.denylist.Path != "" {
		deps.ReloadDenylist = func() error { return p.denylist.Reload(p.Filter) }
	}
	if p.Cache != nil {
		deps.InvalidateProfile = p.Cache.InvalidateProfile
	}
	return deps
}

func cacheStore(cfg *config.Config, infra *Infra) resultcache.Store {
	if cfg.Cache.Backend == "redis" && infra.Redis != nil {
		return resultcache.NewRedisStore(infra.Redis, cfg.Cache.LocalSize, cfg.Cache.TTL)
	}
	return resultcache.NewMemStore(cfg.Cache.LocalSize, cfg.Cache.TTL)
}

// profileProvider consults the database first, then static profiles.
func profileProvider(cfg *config.Config, infra *Infra) (profile.Provider, error) {
	static, err := profile.NewStatic(cfg.Profiles.Static)
	if err != nil {
		return nil, err
	}
	if infra.DB == nil {
		return static, nil
	}
	return profile.Chain{profile.NewRepository(infra.DB, cfg.Profiles.Timeout), static}, nil
}

func auditSink(cfg *config.Config, infra *Infra, log infralogger.Logger, tp *telemetry.Provider) audit.Sink {
	sinks := make([]audit.Sink, 0, len(cfg.Audit.Sinks))
	for _, name := range cfg.Audit.Sinks {
		switch name {
		case config.AuditSinkLog:
			sinks = append(sinks, audit.NewLogSink(log))
		case config.AuditSinkPostgres:
			if infra.DB != nil {
				sinks = append(sinks, audit.NewPostgresSink(infra.DB))
			}
		case config.AuditSinkElasticsearch:
			if infra.Elasticsearch != nil {
				sinks = append(sinks, audit.NewElasticsearchSink(infra.Elasticsearch, cfg.Elasticsearch.AuditIndex))
			}
		}
	}
	return audit.NewMulti(log, tp, sinks...).WithTimeout(cfg.Audit.Timeout)
}
