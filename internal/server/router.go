package server

import (
	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP router with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(noCache())

	r.POST("/chunk", h.processChunk)
	r.GET("/incidents", h.listIncidents)
	r.GET("/incident/:id", h.getIncident)
	r.GET("/incident/:id/timeline", h.getTimeline)
	r.GET("/healthz", h.healthCheck)

	return r
}

// noCache keeps clients polling incident state from serving stale responses.
func noCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
