package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/traffic-autoscaler/internal/history"
	"github.com/OldStager01/traffic-autoscaler/internal/orchestrator"
	"github.com/OldStager01/traffic-autoscaler/pkg/config"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
	"github.com/OldStager01/traffic-autoscaler/pkg/validation"
)

type TrafficService interface {
	Now() time.Time
	CurrentTraffic(ctx context.Context) (*models.LoadSample, error)
	Historical(ctx context.Context, q history.Query) (*models.HistoricalData, error)
	MetricsSummary(ctx context.Context) (*orchestrator.MetricsSummary, error)
}

type TrafficHandler struct {
	service TrafficService
	config  *config.APIConfig
}

func NewTrafficHandler(service TrafficService, cfg *config.APIConfig) *TrafficHandler {
	return &TrafficHandler{service: service, config: cfg}
}

type CurrentTrafficResponse struct {
	Timestamp       string  `json:"timestamp"`
	CurrentRequests float64 `json:"current_requests"`
	Source          string  `json:"source,omitempty"`
}

// CurrentTraffic godoc
// @Summary Current request rate
// @Tags traffic
// @Produce json
// @Success 200 {object} CurrentTrafficResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/current-traffic [get]
func (h *TrafficHandler) CurrentTraffic(c *gin.Context) {
	sample, err := h.service.CurrentTraffic(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CurrentTrafficResponse{
		Timestamp:       sample.Timestamp.Format(models.TimestampLayout),
		CurrentRequests: models.Round(sample.Requests, 2),
		Source:          sample.Source,
	})
}

// HistoricalData godoc
// @Summary Resampled traffic history
// @Tags traffic
// @Produce json
// @Param start_time query string false "Window start (ISO 8601)"
// @Param end_time query string false "Window end (ISO 8601)"
// @Param range query string false "Window length ending at end_time, e.g. 6h or 2d"
// @Param interval query string false "Bucket size" Enums(1m, 5m, 15m)
// @Param limit query int false "Maximum buckets"
// @Success 200 {object} models.HistoricalData
// @Failure 400 {object} ErrorResponse
// @Router /api/historical-data [get]
func (h *TrafficHandler) HistoricalData(c *gin.Context) {
	from, to, err := h.parseTimeRange(c)
	if err != nil {
		respondError(c, err)
		return
	}

	interval := c.DefaultQuery("interval", "5m")
	data, err := h.service.Historical(c.Request.Context(), history.Query{
		Start:    from,
		End:      to,
		Interval: interval,
		Limit:    h.parseLimit(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, data)
}

// MetricsSummary godoc
// @Summary Stored history and model overview
// @Tags traffic
// @Produce json
// @Success 200 {object} orchestrator.MetricsSummary
// @Router /api/metrics/summary [get]
func (h *TrafficHandler) MetricsSummary(c *gin.Context) {
	summary, err := h.service.MetricsSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *TrafficHandler) getDefaultLimit() int {
	if h.config != nil && h.config.DefaultLimit > 0 {
		return h.config.DefaultLimit
	}
	return 1000
}

func (h *TrafficHandler) getMaxLimit() int {
	if h.config != nil && h.config.MaxLimit > 0 {
		return h.config.MaxLimit
	}
	return 10000
}

func (h *TrafficHandler) parseLimit(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return validation.ClampLimit(limit, h.getDefaultLimit(), h.getMaxLimit())
}

// parseTimeRange defaults to the 24 hours before the traffic clock's now.
func (h *TrafficHandler) parseTimeRange(c *gin.Context) (time.Time, time.Time, error) {
	to, err := validation.ParseOptionalTimestamp(c.Query("end_time"), h.service.Now())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	window := 24 * time.Hour
	if rangeStr := c.Query("range"); rangeStr != "" {
		window, err = parseRange(rangeStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	from, err := validation.ParseOptionalTimestamp(c.Query("start_time"), to.Add(-window))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// parseRange accepts Go durations plus a day suffix ("7d").
func parseRange(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, invalidRange(s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, invalidRange(s)
	}
	return d, nil
}
