package bootstrap

import (
	"context"
	"fmt"
	"slices"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	infraes "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/elasticsearch"
	infralogger "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	infraredis "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/redis"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/config"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/database"
)

// Infra holds the optional backing services. Nil fields were not
// configured.
type Infra struct {
	DB            *sqlx.DB
	Redis         *redis.Client
	Elasticsearch *es.Client
}

// SetupInfra connects to every configured backing service. On error the
// connections opened so far are closed.
func SetupInfra(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*Infra, error) {
	infra := &Infra{}

	if cfg.Database.Enabled() {
		log.Info("Connecting to PostgreSQL database",
			infralogger.String("host", cfg.Database.Host),
			infralogger.String("port", cfg.Database.Port),
			infralogger.String("database", cfg.Database.DBName),
		)
		db, err := database.NewPostgresConnection(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		infra.DB = db
		log.Info("Database connected successfully")
	}

	if cfg.Redis.Enabled {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis.Config)
		if err != nil {
			infra.Close(log)
			return nil, fmt.Errorf("redis: %w", err)
		}
		infra.Redis = rdb
		log.Info("Redis connected", infralogger.String("address", cfg.Redis.Address))
	}

	if slices.Contains(cfg.Audit.Sinks, config.AuditSinkElasticsearch) {
		client, err := infraes.NewClient(ctx, cfg.Elasticsearch.Config, log)
		if err != nil {
			infra.Close(log)
			return nil, fmt.Errorf("elasticsearch: %w", err)
		}
		infra.Elasticsearch = client
	}

	return infra, nil
}

// Close releases the open connections.
func (i *Infra) Close(log infralogger.Logger) {
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			log.Error("Failed to close database", infralogger.Error(err))
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			log.Error("Failed to close redis", infralogger.Error(err))
		}
	}
}
