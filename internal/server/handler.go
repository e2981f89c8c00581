package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/sitrep/internal/pipeline"
	"github.com/ppiankov/sitrep/internal/store"
)

type Handler struct {
	pipeline *pipeline.Pipeline
	store    *store.Store
	logger   *logrus.Logger
}

func NewHandler(p *pipeline.Pipeline, s *store.Store, logger *logrus.Logger) *Handler {
	return &Handler{
		pipeline: p,
		store:    s,
		logger:   logger,
	}
}

func (h *Handler) processChunk(c *gin.Context) {
	var input ChunkRequest
	log := h.logger.WithField("method", "processChunk")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.pipeline.ProcessChunk(c.Request.Context(), pipeline.ChunkRequest{
		Text:        input.Text,
		IncidentID:  input.IncidentID,
		DeviceLat:   input.DeviceLat,
		DeviceLng:   input.DeviceLng,
		AutoCluster: input.AutoCluster,
		CallerID:    input.CallerID,
		CallerInfo:  input.CallerInfo,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyText) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text must not be empty"})
			return
		}
		log.WithError(err).Error("Failed to process chunk")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ChunkResponse{
		IncidentID:   result.IncidentID,
		Summary:      result.State,
		ClaimsAdded:  result.ClaimsAdded,
		ClusterScore: result.ClusterScore,
		ClusterNew:   result.ClusterNew,
	})
}

func (h *Handler) listIncidents(c *gin.Context) {
	if c.Query("summaries") == "true" {
		entries := h.store.Snapshot()
		states := make(map[string]any, len(entries))
		for _, e := range entries {
			states[e.ID] = e.Incident.State()
		}
		c.JSON(http.StatusOK, gin.H{"incidents": states})
		return
	}
	c.JSON(http.StatusOK, IncidentListResponse{IncidentIDs: h.store.IDs()})
}

func (h *Handler) getIncident(c *gin.Context) {
	id := c.Param("id")
	state, err := h.store.State(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) getTimeline(c *gin.Context) {
	id := c.Param("id")
	state, err := h.store.State(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, TimelineResponse{
		IncidentID: id,
		Timeline:   state.Timeline,
	})
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "incidents": h.store.Len()})
}
