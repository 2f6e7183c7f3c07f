package config

import (
	"errors"
	"fmt"
	"time"

	infraconfig "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/config"
	infraes "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/elasticsearch"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/profiling"
	infraredis "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/redis"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/database"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/lmanalyzer"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/policy"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/resultcache"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/router"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/specialized"
)

// Default configuration values.
const (
	defaultServiceName    = "curation"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8090
	defaultProfileTimeout = 2 * time.Second
	defaultAuditTimeout   = 3 * time.Second
)

// Audit sink names.
const (
	AuditSinkLog           = "log"
	AuditSinkPostgres      = "postgres"
	AuditSinkElasticsearch = "elasticsearch"
)

// Config holds all configuration for the curation service.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Database      database.Config     `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Logging       logger.Config       `yaml:"logging"`
	Auth          AuthConfig          `yaml:"auth"`
	Pipeline      router.Config       `yaml:"pipeline"`
	FastFilter    FastFilterConfig    `yaml:"fast_filter"`
	Specialized   specialized.Config  `yaml:"specialized"`
	Cache         resultcache.Config  `yaml:"cache"`
	LM            lmanalyzer.Config   `yaml:"lm"`
	Policy        policy.Config       `yaml:"policy"`
	Profiles      ProfilesConfig      `yaml:"profiles"`
	Audit         AuditConfig         `yaml:"audit"`
	Profiling     profiling.Config    `yaml:"profiling"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name         string        `yaml:"name"`
	Version      string        `yaml:"version"`
	Port         int           `env:"CURATION_PORT" yaml:"port"`
	Debug        bool          `env:"APP_DEBUG"     yaml:"debug"`
	CORSOrigins  []string      `env:"CORS_ORIGINS"  yaml:"cors_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig enables the shared cache store.
type RedisConfig struct {
	Enabled           bool `env:"REDIS_ENABLED" yaml:"enabled"`
	infraredis.Config `yaml:",inline"`
}

// ElasticsearchConfig enables the Elasticsearch audit sink.
type ElasticsearchConfig struct {
	infraes.Config `yaml:",inline"`
	AuditIndex     string `env:"ELASTICSEARCH_AUDIT_INDEX" yaml:"audit_index"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// FastFilterConfig points at the denylist file. Without a file the
// built-in rules are used.
type FastFilterConfig struct {
	DenylistFile    string `env:"DENYLIST_FILE"  yaml:"denylist_file"`
	IncludeDefaults *bool  `yaml:"include_defaults"`
	Watch           bool   `env:"DENYLIST_WATCH" yaml:"watch"`
}

// UseDefaults treats an omitted include_defaults as true.
func (f FastFilterConfig) UseDefaults() bool {
	return f.IncludeDefaults == nil || *f.IncludeDefaults
}

// ProfilesConfig lists statically configured profiles. They are consulted
// after the database.
type ProfilesConfig struct {
	Static  []domain.SafetyProfile `yaml:"static"`
	Timeout time.Duration          `yaml:"timeout"`
}

// AuditConfig selects where decision records go.
type AuditConfig struct {
	Sinks   []string      `env:"AUDIT_SINKS" yaml:"sinks"`
	Timeout time.Duration `yaml:"timeout"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	cfg.Database.SetDefaults()
	cfg.Logging.SetDefaults()
	cfg.Pipeline.SetDefaults()
	cfg.Specialized.SetDefaults()
	cfg.Cache.SetDefaults()
	cfg.LM.SetDefaults()
	setElasticsearchDefaults(&cfg.Elasticsearch)
	setProfilesDefaults(&cfg.Profiles)
	setAuditDefaults(&cfg.Audit)
	if cfg.Pipeline.LMDeadline == 0 {
		cfg.Pipeline.LMDeadline = cfg.LM.Deadline
	}
	if cfg.Pipeline.CacheTTL == 0 {
		cfg.Pipeline.CacheTTL = cfg.Cache.TTL
	}
	// Auth defaults are handled by env tags.
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setElasticsearchDefaults(e *ElasticsearchConfig) {
	if e.AuditIndex == "" {
		e.AuditIndex = "curation_audit"
	}
}

func setProfilesDefaults(p *ProfilesConfig) {
	if p.Timeout == 0 {
		p.Timeout = defaultProfileTimeout
	}
}

func setAuditDefaults(a *AuditConfig) {
	if len(a.Sinks) == 0 {
		a.Sinks = []string{AuditSinkLog}
	}
	if a.Timeout == 0 {
		a.Timeout = defaultAuditTimeout
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(infraconfig.ValidatePort("service.port", c.Service.Port))
	add(infraconfig.ValidateLogLevel("logging.level", c.Logging.Level))
	add(infraconfig.ValidateOneOf("logging.format", c.Logging.Format, "json", "console"))

	if _, err := router.ParseStrategy(c.Pipeline.Strategy); err != nil {
		add(&infraconfig.ValidationError{Field: "pipeline.strategy", Message: err.Error()})
	}
	add(infraconfig.ValidateUnitInterval("pipeline.high_confidence_threshold", c.Pipeline.HighConfidenceThreshold))

	add(infraconfig.ValidateOneOf("cache.backend", c.Cache.Backend, "memory", "redis"))
	if c.Cache.Enabled && c.Cache.Backend == "redis" && !c.Redis.Enabled {
		add(&infraconfig.ValidationError{Field: "cache.backend", Message: "redis backend requires redis.enabled"})
	}
	if c.Redis.Enabled {
		add(infraconfig.ValidateRequired("redis.address", c.Redis.Address))
	}

	for i, name := range c.LM.Providers {
		add(infraconfig.ValidateOneOf(fmt.Sprintf("lm.providers[%d]", i), name, "anthropic", "ollama"))
	}

	if err := c.Policy.Validate(); err != nil {
		add(&infraconfig.ValidationError{Field: "policy.bands", Message: err.Error()})
	}

	for i, p := range c.Profiles.Static {
		if err := p.Validate(); err != nil {
			add(&infraconfig.ValidationError{Field: fmt.Sprintf("profiles.static[%d]", i), Message: err.Error()})
		}
	}

	for i, sink := range c.Audit.Sinks {
		field := fmt.Sprintf("audit.sinks[%d]", i)
		add(infraconfig.ValidateOneOf(field, sink, AuditSinkLog, AuditSinkPostgres, AuditSinkElasticsearch))
		if sink == AuditSinkPostgres && !c.Database.Enabled() {
			add(&infraconfig.ValidationError{Field: field, Message: "postgres sink requires database.host"})
		}
		if sink == AuditSinkElasticsearch {
			add(infraconfig.ValidateRequired("elasticsearch.url", c.Elasticsearch.URL))
		}
	}

	return errors.Join(errs...)
}
