package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraconfig "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/config"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/config"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

const sampleYAML = `
service:
  port: 9000
pipeline:
  strategy: multi_layer
  high_confidence_threshold: 0.9
cache:
  enabled: true
  ttl: 30m
lm:
  providers: [ollama]
  deadline: 5s
  ollama:
    model: llama3.2
profiles:
  static:
    - profile_id: kid
      age_category: under_13
      safety_level: strict
      jurisdiction: US
      blocked_categories: [violence]
audit:
  sinks: [log]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "curation", cfg.Service.Name)
	assert.Equal(t, 9000, cfg.Service.Port)
	assert.Equal(t, "multi_layer", cfg.Pipeline.Strategy)
	assert.InDelta(t, 0.9, cfg.Pipeline.HighConfidenceThreshold, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.LM.Deadline)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.LMDeadline)
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.CacheTTL)
	assert.Equal(t, []string{"ollama"}, cfg.LM.Providers)
	assert.Equal(t, "llama3.2", cfg.LM.Ollama.Model)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.FastFilter.UseDefaults())

	require.Len(t, cfg.Profiles.Static, 1)
	kid := cfg.Profiles.Static[0]
	assert.Equal(t, domain.AgeUnder13, kid.AgeCategory)
	assert.Equal(t, domain.SafetyStrict, kid.SafetyLevel)
	assert.Equal(t, []string{"violence"}, kid.BlockedCategories)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("PIPELINE_STRATEGY", "llm_only")
	t.Setenv("CURATION_PORT", "9100")
	t.Setenv("AUDIT_SINKS", "log, elasticsearch")
	t.Setenv("ELASTICSEARCH_URL", "es:9200")
	t.Setenv("LM_DEADLINE", "3s")

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "llm_only", cfg.Pipeline.Strategy)
	assert.Equal(t, 9100, cfg.Service.Port)
	assert.Equal(t, []string{"log", "elasticsearch"}, cfg.Audit.Sinks)
	assert.Equal(t, "es:9200", cfg.Elasticsearch.URL)
	assert.Equal(t, 3*time.Second, cfg.LM.Deadline)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8090, cfg.Service.Port)
	assert.Equal(t, "hybrid", cfg.Pipeline.Strategy)
	assert.InDelta(t, 0.85, cfg.Pipeline.HighConfidenceThreshold, 1e-9)
	assert.Equal(t, 12*time.Second, cfg.Pipeline.LMDeadline)
	assert.Equal(t, []string{config.AuditSinkLog}, cfg.Audit.Sinks)
	assert.False(t, cfg.Database.Enabled())
}

func TestValidate(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"unknown strategy", func(c *config.Config) { c.Pipeline.Strategy = "fastest" }, "pipeline.strategy"},
		{"threshold above one", func(c *config.Config) { c.Pipeline.HighConfidenceThreshold = 1.5 }, "pipeline.high_confidence_threshold"},
		{"unknown provider", func(c *config.Config) { c.LM.Providers = []string{"gpt"} }, "lm.providers[0]"},
		{"unknown cache backend", func(c *config.Config) { c.Cache.Backend = "disk" }, "cache.backend"},
		{"redis backend without redis", func(c *config.Config) {
			c.Cache.Enabled = true
			c.Cache.Backend = "redis"
		}, "cache.backend"},
		{"postgres sink without database", func(c *config.Config) { c.Audit.Sinks = []string{"postgres"} }, "audit.sinks[0]"},
		{"invalid static profile", func(c *config.Config) {
			c.Profiles.Static = []domain.SafetyProfile{{ProfileID: "x", AgeCategory: "toddler", SafetyLevel: domain.SafetyStrict}}
		}, "profiles.static[0]"},
		{"bad port", func(c *config.Config) { c.Service.Port = 70000 }, "service.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			var vErr *infraconfig.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}
