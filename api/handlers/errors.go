package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/traffic-autoscaler/internal/decision"
	"github.com/OldStager01/traffic-autoscaler/internal/forecast"
	"github.com/OldStager01/traffic-autoscaler/internal/history"
	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/validation"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, validation.ErrInvalidInput),
		errors.Is(err, decision.ErrInvalidInput),
		errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, history.ErrInvalidInterval),
		errors.Is(err, history.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, decision.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, forecast.ErrPredictionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	traceID := c.GetString("trace_id")

	entry := logger.WithFields(map[string]interface{}{
		"path":     c.FullPath(),
		"status":   status,
		"trace_id": traceID,
	})
	if status >= http.StatusInternalServerError {
		entry.Errorf("Request failed: %v", err)
	} else {
		entry.Debugf("Request rejected: %v", err)
	}

	c.JSON(status, ErrorResponse{Error: err.Error(), TraceID: traceID})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, TraceID: c.GetString("trace_id")})
}

func invalidRange(s string) error {
	return fmt.Errorf("%w: invalid range %q", validation.ErrInvalidInput, s)
}
