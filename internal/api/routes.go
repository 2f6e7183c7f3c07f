package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	infragin "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/gin"
)

// SetupRoutes mounts the API. Curation and read endpoints are public;
// strategy switching, denylist reload and cache invalidation require JWT.
func SetupRoutes(router *gin.Engine, h *Handler, metrics http.Handler, jwtSecret string) {
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/api/v1")
	v1.POST("/curate", h.Curate)
	v1.GET("/strategy", h.GetStrategy)
	v1.GET("/stats", h.GetStats)

	admin := infragin.ProtectedGroup(router, "/api/v1", jwtSecret)
	admin.PUT("/strategy", h.SetStrategy)
	admin.POST("/denylist/reload", h.ReloadDenylist)
	admin.DELETE("/cache/profiles/:id", h.InvalidateProfileCache)
}
