package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"hark/internal/engine"
)

// contentTypes maps audio extensions to MIME types for the upload part.
var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/m4a",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
}

// Client talks to the transcription service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL. timeout bounds each request;
// large files take minutes, so workers pass a long one.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CheckServer reports whether the service answers on its root endpoint.
func (c *Client) CheckServer(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Transcribe uploads an audio payload and returns the transcription result.
func (c *Client) Transcribe(ctx context.Context, filename string, data []byte, opts engine.Options) (*engine.TranscriptionResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := createFilePart(writer, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}

	fields := map[string]string{
		"audio_tagging_time_resolution": strconv.Itoa(opts.TimeResolution),
		"temperature":                   strconv.FormatFloat(opts.Temperature, 'f', -1, 64),
		"no_speech_threshold":           strconv.FormatFloat(opts.NoSpeechThreshold, 'f', -1, 64),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result engine.TranscriptionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// createFilePart adds the file part with a content type derived from the
// filename extension.
func createFilePart(writer *multipart.Writer, filename string) (io.Writer, error) {
	contentType := "application/octet-stream"
	if i := strings.LastIndex(filename, "."); i >= 0 {
		if ct, ok := contentTypes[strings.ToLower(filename[i:])]; ok {
			contentType = ct
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	return writer.CreatePart(header)
}
