package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hark/internal/audio"
	"hark/internal/engine"
	"hark/internal/postprocess"
)

// ErrValidation marks client-side failures: missing payload or an
// unsupported file extension. Detected before any engine call.
var ErrValidation = errors.New("validation failed")

// Pipeline runs prepare, invoke, and finalize for one request. The engine is
// injected once at construction and shared read-only across concurrent
// requests; each request owns its temporary artifacts.
type Pipeline struct {
	invoker  *engine.Invoker
	hostname string
}

// NewPipeline creates the pipeline around the given engine.
func NewPipeline(eng engine.Engine) *Pipeline {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &Pipeline{
		invoker:  engine.NewInvoker(eng),
		hostname: hostname,
	}
}

// Transcribe validates the upload, runs the full pipeline, and returns the
// finalized result. All temporary audio artifacts are released before it
// returns, on every path.
func (p *Pipeline) Transcribe(ctx context.Context, filename string, data []byte, opts engine.Options) (*engine.TranscriptionResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no file provided", ErrValidation)
	}
	if !audio.IsSupportedExtension(filename) {
		return nil, fmt.Errorf("%w: unsupported file format, supported formats: %s",
			ErrValidation, strings.Join(audio.SupportedExtensions, ", "))
	}

	asset := &audio.Asset{
		Data: data,
		Ext:  strings.ToLower(filepath.Ext(filename)),
	}

	raw, err := p.invoker.Invoke(ctx, asset, opts)
	if err != nil {
		return nil, err
	}

	result := postprocess.Finalize(raw)
	result.Hostname = p.hostname
	return result, nil
}

// CheckLiveness re-runs the pipeline against the pre-provisioned reference
// audio file. The service counts as live only when the transcript has at
// least two characters.
func (p *Pipeline) CheckLiveness(ctx context.Context, referencePath string) (string, error) {
	data, err := os.ReadFile(referencePath)
	if err != nil {
		return "", fmt.Errorf("reference audio unavailable: %w", err)
	}

	result, err := p.Transcribe(ctx, filepath.Base(referencePath), data, engine.DefaultOptions())
	if err != nil {
		return "", err
	}

	text := strings.ToLower(strings.TrimSpace(result.Text))
	if len(text) < 2 {
		return "", fmt.Errorf("transcription too short or empty")
	}
	return text, nil
}
