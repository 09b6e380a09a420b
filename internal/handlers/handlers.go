package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/zfogg/resonate/internal/apperr"
	"github.com/zfogg/resonate/internal/engine"
)

// Handlers contains all HTTP handlers for the API.
type Handlers struct {
	engine *engine.Engine
}

// NewHandlers creates a handlers instance over an engine.
func NewHandlers(e *engine.Engine) *Handlers {
	return &Handlers{engine: e}
}

// RegisterRoutes mounts the API surface on a router group.
func (h *Handlers) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/recordings", h.RegisterRecording)
		v1.GET("/recordings/:id", h.GetRecording)
		v1.DELETE("/recordings/:id", h.RemoveRecording)
		v1.DELETE("/recordings", h.ClearIndex)
		v1.POST("/identify", h.Identify)
	}
	r.GET("/healthz", h.Healthz)
}

// Healthz reports liveness.
func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

// respondError maps an engine error onto the HTTP surface.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code.StatusCode(), gin.H{
			"error":   string(appErr.Code),
			"message": appErr.Message,
		})
		return
	}
	c.JSON(500, gin.H{
		"error":   string(apperr.CodeInternal),
		"message": "internal error",
	})
}
