package bootstrap

import (
	"github.com/gin-gonic/gin"

	infragin "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/gin"
	infralogger "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/metrics"
	infraredis "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/redis"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/api"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/config"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/telemetry"
)

// SetupHTTPServer creates the HTTP server with health checks for the
// backing services that are connected.
func SetupHTTPServer(
	cfg *config.Config,
	infra *Infra,
	p *Pipeline,
	log infralogger.Logger,
	tp *telemetry.Provider,
) *infragin.Server {
	handler := api.NewHandler(p.Router, p.APIDeps(), log)
	httpMetrics := metrics.NewHTTPMetrics(tp.Registry(), "curation")

	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithCORSOrigins(cfg.Service.CORSOrigins).
		WithTimeouts(cfg.Service.ReadTimeout, cfg.Service.WriteTimeout, cfg.Service.IdleTimeout).
		WithRoutes(func(router *gin.Engine) {
			router.Use(httpMetrics.Middleware())
			api.SetupRoutes(router, handler, tp.Handler(), cfg.Auth.JWTSecret)
		})

	if infra.DB != nil {
		builder = builder.WithDatabaseHealthCheck(infra.DB.PingContext)
	}
	if infra.Redis != nil {
		builder = builder.WithRedisHealthCheck(infraredis.Pinger(infra.Redis))
	}

	return builder.Build()
}
