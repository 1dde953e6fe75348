package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/traffic-autoscaler/internal/decision"
	"github.com/OldStager01/traffic-autoscaler/internal/orchestrator"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
	"github.com/OldStager01/traffic-autoscaler/pkg/validation"
)

type ScalingService interface {
	Recommend(ctx context.Context, in models.ScalingInput) (*models.ScalingRecommendation, error)
	ScalingConfig() decision.Config
	UpdateScalingConfig(ctx context.Context, update decision.ConfigUpdate) (decision.Config, error)
	CostSummary(hours float64) *orchestrator.CostReport
}

type ScalingHandler struct {
	service ScalingService
}

func NewScalingHandler(service ScalingService) *ScalingHandler {
	return &ScalingHandler{service: service}
}

type ScalingRequest struct {
	CurrentServers     int      `json:"current_servers"`
	CurrentLoad        float64  `json:"current_load"`
	PredictedLoad      float64  `json:"predicted_load"`
	CurrentUtilization *float64 `json:"current_utilization,omitempty"`
}

// ConfigResponse is the engine configuration with durations in the units
// the API accepts.
type ConfigResponse struct {
	decision.Config
	CooldownMinutes     float64 `json:"cooldown_minutes"`
	StartupGraceSeconds float64 `json:"startup_grace_seconds"`
}

func newConfigResponse(cfg decision.Config) ConfigResponse {
	return ConfigResponse{
		Config:              cfg,
		CooldownMinutes:     cfg.Cooldown.Minutes(),
		StartupGraceSeconds: cfg.StartupGrace.Seconds(),
	}
}

// ConfigUpdateRequest replaces only the fields that are present.
type ConfigUpdateRequest struct {
	decision.ConfigUpdate
	CooldownMinutes     *float64 `json:"cooldown_minutes,omitempty"`
	StartupGraceSeconds *float64 `json:"startup_grace_seconds,omitempty"`
}

func (r ConfigUpdateRequest) toUpdate() decision.ConfigUpdate {
	update := r.ConfigUpdate
	if r.CooldownMinutes != nil {
		d := time.Duration(*r.CooldownMinutes * float64(time.Minute))
		update.Cooldown = &d
	}
	if r.StartupGraceSeconds != nil {
		d := time.Duration(*r.StartupGraceSeconds * float64(time.Second))
		update.StartupGrace = &d
	}
	return update
}

// Recommend godoc
// @Summary Recommend a server count
// @Tags scaling
// @Accept json
// @Produce json
// @Param request body ScalingRequest true "Current and predicted load"
// @Success 200 {object} models.ScalingRecommendation
// @Failure 400 {object} ErrorResponse
// @Router /api/recommend-scaling [post]
func (h *ScalingHandler) Recommend(c *gin.Context) {
	var req ScalingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := validation.ValidateScalingRequest(req.CurrentServers, req.CurrentLoad, req.PredictedLoad, req.CurrentUtilization); err != nil {
		respondError(c, err)
		return
	}

	rec, err := h.service.Recommend(c.Request.Context(), models.ScalingInput{
		CurrentServers:     req.CurrentServers,
		CurrentLoad:        req.CurrentLoad,
		PredictedLoad:      req.PredictedLoad,
		CurrentUtilization: req.CurrentUtilization,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// GetConfig godoc
// @Summary Current autoscaling configuration
// @Tags scaling
// @Produce json
// @Success 200 {object} ConfigResponse
// @Router /api/autoscaling/config [get]
func (h *ScalingHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, newConfigResponse(h.service.ScalingConfig()))
}

// UpdateConfig godoc
// @Summary Update autoscaling configuration
// @Tags scaling
// @Accept json
// @Produce json
// @Param request body ConfigUpdateRequest true "Fields to replace"
// @Success 200 {object} ConfigResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/autoscaling/config [put]
func (h *ScalingHandler) UpdateConfig(c *gin.Context) {
	var req ConfigUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	update := req.toUpdate()
	if update.IsEmpty() {
		badRequest(c, "no configuration fields provided")
		return
	}

	cfg, err := h.service.UpdateScalingConfig(c.Request.Context(), update)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Configuration updated",
		"config":  newConfigResponse(cfg),
	})
}

// CostSummary godoc
// @Summary Server cost over a trailing window
// @Tags scaling
// @Produce json
// @Param hours query number false "Window length in hours" default(24)
// @Success 200 {object} orchestrator.CostReport
// @Failure 400 {object} ErrorResponse
// @Router /api/cost/summary [get]
func (h *ScalingHandler) CostSummary(c *gin.Context) {
	hours := 24.0
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(c, "hours must be a number")
			return
		}
		hours = parsed
	}
	if err := validation.ValidateWindowHours(hours); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.service.CostSummary(hours))
}
