package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/traffic-autoscaler/internal/orchestrator"
	"github.com/OldStager01/traffic-autoscaler/pkg/validation"
)

// ScalingEventsHandler serves the persisted scaling audit log.
type ScalingEventsHandler struct {
	history orchestrator.ScalingEventHistory
}

func NewScalingEventsHandler(history orchestrator.ScalingEventHistory) *ScalingEventsHandler {
	return &ScalingEventsHandler{history: history}
}

// List godoc
// @Summary Persisted scaling actions
// @Tags scaling
// @Produce json
// @Param from query string false "Window start (ISO 8601)"
// @Param to query string false "Window end (ISO 8601)"
// @Param limit query int false "Maximum events" default(50)
// @Success 200 {object} map[string]interface{}
// @Router /api/scaling-events [get]
func (h *ScalingEventsHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	limit = validation.ClampLimit(limit, 50, 500)
	ctx := c.Request.Context()

	if c.Query("from") == "" && c.Query("to") == "" {
		events, err := h.history.GetRecent(ctx, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": events, "count": len(events)})
		return
	}

	from, to, err := parseWindow(c)
	if err != nil {
		respondError(c, err)
		return
	}

	events, err := h.history.GetRange(ctx, from, to, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":  from,
		"to":    to,
		"data":  events,
		"count": len(events),
	})
}

// Stats godoc
// @Summary Scale-out and scale-in counts over a window
// @Tags scaling
// @Produce json
// @Param from query string false "Window start (ISO 8601)"
// @Param to query string false "Window end (ISO 8601)"
// @Success 200 {object} queries.ScalingStats
// @Router /api/scaling-events/stats [get]
func (h *ScalingEventsHandler) Stats(c *gin.Context) {
	from, to, err := parseWindow(c)
	if err != nil {
		respondError(c, err)
		return
	}

	stats, err := h.history.GetStats(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// parseWindow reads from/to, defaulting to the last 24 hours of wall time.
func parseWindow(c *gin.Context) (time.Time, time.Time, error) {
	to, err := validation.ParseOptionalTimestamp(c.Query("to"), time.Now().UTC())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from, err := validation.ParseOptionalTimestamp(c.Query("from"), to.Add(-24*time.Hour))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, invalidRange(c.Query("from") + ".." + c.Query("to"))
	}
	return from, to, nil
}
