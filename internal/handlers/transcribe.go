package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"hark/internal/engine"
	"hark/internal/service"
)

// TranscribeHandler serves the synchronous transcription endpoint.
type TranscribeHandler struct {
	pipeline *service.Pipeline
}

// NewTranscribeHandler creates the handler around the pipeline.
func NewTranscribeHandler(pipeline *service.Pipeline) *TranscribeHandler {
	return &TranscribeHandler{pipeline: pipeline}
}

// Transcribe accepts a multipart audio upload and returns the transcription
// result as JSON.
func (h *TranscribeHandler) Transcribe(c echo.Context) error {
	ctx := c.Request().Context()

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file provided"})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	result, err := h.pipeline.Transcribe(ctx, file.Filename, data, parseOptions(c))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, result)
}

// parseOptions reads the invocation options from the form, falling back to
// the defaults on absent or malformed values.
func parseOptions(c echo.Context) engine.Options {
	opts := engine.DefaultOptions()

	if v := c.FormValue("audio_tagging_time_resolution"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			opts.TimeResolution = parsed
		}
	}
	if v := c.FormValue("temperature"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			opts.Temperature = parsed
		}
	}
	if v := c.FormValue("no_speech_threshold"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			opts.NoSpeechThreshold = parsed
		}
	}
	return opts
}
