package handlers

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"hark/internal/audio"
	"hark/internal/queue"
)

// JobHandler is the producer side of the queue: it stores the audio payload
// and pushes the job id onto the pending list. Workers pick it up from there.
type JobHandler struct {
	store queue.Store
}

// NewJobHandler creates the handler around the queue store.
func NewJobHandler(store queue.Store) *JobHandler {
	return &JobHandler{store: store}
}

// Submit accepts a multipart audio upload and enqueues it for asynchronous
// transcription.
func (h *JobHandler) Submit(c echo.Context) error {
	ctx := c.Request().Context()

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file provided"})
	}
	if !audio.IsSupportedExtension(file.Filename) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported file format"})
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

	jobID := uuid.New().String()
	if err := h.store.Set(ctx, queue.AudioKey(jobID), data); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if err := h.store.Push(ctx, queue.PendingList, jobID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"job_id": jobID})
}

// Result serves a completed job's result until its expiry.
func (h *JobHandler) Result(c echo.Context) error {
	ctx := c.Request().Context()
	jobID := c.Param("id")

	data, err := h.store.Get(ctx, queue.ResultKey(jobID))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if data == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "result not found"})
	}

	return c.JSONBlob(http.StatusOK, data)
}
