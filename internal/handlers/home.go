package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Home greets callers and points them at the transcription endpoint.
func Home(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Welcome to the transcription API. Use the /transcribe endpoint to transcribe audio files.",
	})
}
