package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"hark/internal/audio"
)

// ErrEngine is returned when the recognition engine fails after the
// fallback attempt is exhausted.
var ErrEngine = errors.New("engine failure")

// fallbackRate is the forced source rate for the single retry on
// malformed audio.
const fallbackRate = 8000

// assumedNoSpeechProb stands in for the missing per-segment speech
// confidence when the engine omits it.
const assumedNoSpeechProb = 0.2

type prepareFunc func(ctx context.Context, asset *audio.Asset, forcedRate int) (*audio.Processed, error)

// Invoker drives the engine for one asset, applying a bounded fallback
// when the engine's output is malformed.
type Invoker struct {
	engine  Engine
	prepare prepareFunc
}

// NewInvoker creates an invoker around the given engine.
func NewInvoker(engine Engine) *Invoker {
	return &Invoker{
		engine:  engine,
		prepare: audio.PrepareWithRate,
	}
}

// Invoke preprocesses the asset and calls the engine. When the returned
// result's first segment is missing its no-speech probability, the audio is
// re-prepared once with the source rate forced to 8 kHz and the engine is
// called again; there is no further retry. Any other engine failure is
// surfaced immediately.
func (inv *Invoker) Invoke(ctx context.Context, asset *audio.Asset, opts Options) (*RawResult, error) {
	processed, err := inv.prepare(ctx, asset, 0)
	if err != nil {
		return nil, err
	}
	defer processed.Remove()

	log.Printf("Starting transcription...")
	raw, err := inv.engine.Transcribe(ctx, processed, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngine, err)
	}

	if missingSpeechProb(raw) {
		log.Printf("Result missing no_speech_prob, retrying with %d Hz source rate", fallbackRate)

		fallback, err := inv.prepare(ctx, asset, fallbackRate)
		if err != nil {
			return nil, err
		}
		defer fallback.Remove()

		raw, err = inv.engine.Transcribe(ctx, fallback, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEngine, err)
		}
		if len(raw.Segments) > 0 && raw.Segments[0].NoSpeechProb == nil {
			prob := assumedNoSpeechProb
			raw.Segments[0].NoSpeechProb = &prob
		}
	}

	log.Printf("Transcription completed: %q", raw.Text)
	return raw, nil
}

// missingSpeechProb reports the engine anomaly that triggers the fallback:
// no segments at all, or a first segment without a no-speech probability.
func missingSpeechProb(raw *RawResult) bool {
	if len(raw.Segments) == 0 {
		return true
	}
	return raw.Segments[0].NoSpeechProb == nil
}
