package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"hark/internal/service"
)

// HealthHandler serves the liveness probe. It re-runs the full pipeline
// against a pre-provisioned reference audio file, so a passing check means
// decode, engine, and post-processing all work end to end.
type HealthHandler struct {
	pipeline      *service.Pipeline
	referencePath string
}

// NewHealthHandler creates the handler for the given reference audio path.
func NewHealthHandler(pipeline *service.Pipeline, referencePath string) *HealthHandler {
	return &HealthHandler{pipeline: pipeline, referencePath: referencePath}
}

// Check responds 200 with the reference transcript, or 503 on any failure.
func (h *HealthHandler) Check(c echo.Context) error {
	text, err := h.pipeline.CheckLiveness(c.Request().Context(), h.referencePath)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"text":   text,
	})
}
