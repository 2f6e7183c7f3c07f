// Package api provides the HTTP handlers for the curation service.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/circuitbreaker"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/router"
)

// Curator is the routing surface the handlers need.
type Curator interface {
	Route(ctx context.Context, content domain.ContentItem, profileID, override string) (domain.CurationDecision, error)
	SwitchStrategy(name string) (router.Strategy, error)
	StrategyInfo() router.Info
	Stats() router.Stats
}

// Deps are the optional admin collaborators. Nil entries make the matching
// endpoint answer 501.
type Deps struct {
	// ReloadDenylist re-reads the denylist file into the fast filter.
	ReloadDenylist func() error
	// InvalidateProfile drops cached results for a profile.
	InvalidateProfile func(ctx context.Context, profileID string) error
	// ProviderStats reports the language model circuit breakers.
	ProviderStats func() map[string]circuitbreaker.Stats
}

// Handler serves the curation API.
type Handler struct {
	curator Curator
	deps    Deps
	log     logger.Logger
}

// NewHandler creates a handler.
func NewHandler(curator Curator, deps Deps, log logger.Logger) *Handler {
	return &Handler{curator: curator, deps: deps, log: log}
}

// CurateRequest is the body of POST /api/v1/curate.
type CurateRequest struct {
	Content   ContentPayload `json:"content"`
	ProfileID string         `binding:"required" json:"profile_id"`
	Strategy  string         `json:"strategy,omitempty"`
}

// ContentPayload is the content being curated.
type ContentPayload struct {
	ID             string            `json:"id,omitempty"`
	Text           string            `binding:"required" json:"text"`
	ContentType    string            `json:"content_type,omitempty"`
	SourceMetadata map[string]string `json:"source_metadata,omitempty"`
}

// CurateResponse is a decision tagged with the content id it is for.
type CurateResponse struct {
	ContentID string `json:"content_id"`
	domain.CurationDecision
}

// Curate handles POST /api/v1/curate.
func (h *Handler) Curate(c *gin.Context) {
	var req CurateRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}

	content := domain.ContentItem{
		ID:             req.Content.ID,
		Text:           req.Content.Text,
		ContentType:    req.Content.ContentType,
		SourceMetadata: req.Content.SourceMetadata,
	}
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	if content.ContentType == "" {
		content.ContentType = domain.ContentTypeText
	}

	decision, err := h.curator.Route(c.Request.Context(), content, req.ProfileID, req.Strategy)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("Curation failed", logger.String("content_id", content.ID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "curation failed"})
		return
	}

	c.JSON(http.StatusOK, CurateResponse{ContentID: content.ID, CurationDecision: decision})
}

// GetStrategy handles GET /api/v1/strategy.
func (h *Handler) GetStrategy(c *gin.Context) {
	c.JSON(http.StatusOK, h.curator.StrategyInfo())
}

// SwitchStrategyRequest is the body of PUT /api/v1/strategy.
type SwitchStrategyRequest struct {
	Strategy string `binding:"required" json:"strategy"`
}

// SetStrategy handles PUT /api/v1/strategy.
func (h *Handler) SetStrategy(c *gin.Context) {
	var req SwitchStrategyRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}

	prev, err := h.curator.SwitchStrategy(req.Strategy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                err.Error(),
			"available_strategies": router.Strategies(),
		})
		return
	}

	info := h.curator.StrategyInfo()
	c.JSON(http.StatusOK, gin.H{
		"previous_strategy": prev,
		"strategy_type":     info.StrategyType,
		"strategy_name":     info.StrategyName,
	})
}

// GetStats handles GET /api/v1/stats.
func (h *Handler) GetStats(c *gin.Context) {
	resp := gin.H{"pipeline": h.curator.Stats()}
	if h.deps.ProviderStats != nil {
		resp["lm_providers"] = h.deps.ProviderStats()
	}
	c.JSON(http.StatusOK, resp)
}

// ReloadDenylist handles POST /api/v1/denylist/reload.
func (h *Handler) ReloadDenylist(c *gin.Context) {
	if h.deps.ReloadDenylist == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no denylist file configured"})
		return
	}
	if err := h.deps.ReloadDenylist(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrConfiguration) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
}

// InvalidateProfileCache handles DELETE /api/v1/cache/profiles/:id.
func (h *Handler) InvalidateProfileCache(c *gin.Context) {
	if h.deps.InvalidateProfile == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "result cache disabled"})
		return
	}
	id := c.Param("id")
	if err := h.deps.InvalidateProfile(c.Request.Context(), id); err != nil {
		h.log.Warn("Profile cache invalidation failed", logger.String("profile_id", id), logger.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "invalidated", "profile_id": id})
}
