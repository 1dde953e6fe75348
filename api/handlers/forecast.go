package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/traffic-autoscaler/pkg/models"
	"github.com/OldStager01/traffic-autoscaler/pkg/validation"
)

type ForecastService interface {
	Now() time.Time
	Forecast(ctx context.Context, now time.Time, horizons []int, lags []float64) (*models.Forecast, error)
}

type ForecastHandler struct {
	service ForecastService
}

func NewForecastHandler(service ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

// ForecastRequest carries the reference time, horizons in minutes and
// optional lag samples, oldest first and most recent last.
type ForecastRequest struct {
	CurrentTime string    `json:"current_time"`
	Intervals   []int     `json:"intervals"`
	LagData     []float64 `json:"lag_data"`
}

// Forecast godoc
// @Summary Forecast request traffic
// @Tags forecast
// @Accept json
// @Produce json
// @Param request body ForecastRequest true "Forecast request"
// @Success 200 {object} models.Forecast
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/forecast [post]
func (h *ForecastHandler) Forecast(c *gin.Context) {
	var req ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	now, err := validation.ParseOptionalTimestamp(req.CurrentTime, h.service.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	if err := validation.ValidateHorizons(req.Intervals); err != nil {
		respondError(c, err)
		return
	}
	for _, v := range req.LagData {
		if err := validation.ValidateLoad("lag_data", v); err != nil {
			respondError(c, err)
			return
		}
	}

	result, err := h.service.Forecast(c.Request.Context(), now, req.Intervals, req.LagData)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
