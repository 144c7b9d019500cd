package handlers

import (
	"net/http"
	"strconv"

	"github.com/OldStager01/paas-autoscaler/pkg/database/queries"
	"github.com/gin-gonic/gin"
)

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 1000
)

// ScaleEventsHandler exposes the scale-event audit trail
// events.EventLogger writes, when a database is configured.
type ScaleEventsHandler struct {
	eventsRepo *queries.ScaleEventRepository
}

func NewScaleEventsHandler(eventsRepo *queries.ScaleEventRepository) *ScaleEventsHandler {
	return &ScaleEventsHandler{eventsRepo: eventsRepo}
}

// GetByApp godoc
// @Summary List scale events for an app
// @Description Get the most recent scale events recorded for one app
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param name path string true "App name"
// @Param limit query int false "Max events to return"
// @Success 200 {object} map[string]interface{} "Scale events"
// @Router /apps/{name}/events [get]
func (h *ScaleEventsHandler) GetByApp(c *gin.Context) {
	if h.eventsRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no database configured, event history unavailable"})
		return
	}

	name := c.Param("name")
	limit := parseLimit(c, defaultEventsLimit, maxEventsLimit)

	events, err := h.eventsRepo.ListByApp(c.Request.Context(), name, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch scale events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events, "count": len(events)})
}

// GetRecent godoc
// @Summary List recent scale events
// @Description Get the most recent scale events across every app
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max events to return"
// @Success 200 {object} map[string]interface{} "Scale events"
// @Router /events/recent [get]
func (h *ScaleEventsHandler) GetRecent(c *gin.Context) {
	if h.eventsRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no database configured, event history unavailable"})
		return
	}

	limit := parseLimit(c, defaultEventsLimit, maxEventsLimit)

	events, err := h.eventsRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch scale events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events, "count": len(events)})
}

func parseLimit(c *gin.Context, defaultLimit, maxLimit int) int {
	limit := defaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > maxLimit {
				limit = maxLimit
			}
		}
	}
	return limit
}
