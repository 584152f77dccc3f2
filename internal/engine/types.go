package engine

import (
	"context"

	"hark/internal/audio"
)

// Segment is one time-bounded span of recognized speech.
// NoSpeechProb is nil when the engine omits it, which happens on some
// malformed inputs and is handled by the invoker's fallback.
type Segment struct {
	Start        float64  `json:"start"`
	End          float64  `json:"end"`
	Text         string   `json:"text"`
	NoSpeechProb *float64 `json:"no_speech_prob,omitempty"`
}

// Tag is one classified sound-event label with its score.
type Tag struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// AudioTagInterval is one time-bounded span of audio-event tags.
// Intervals may overlap each other and may overlap segments arbitrarily.
type AudioTagInterval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Tags  []Tag   `json:"tags"`
}

// RawResult is the engine's output for one invocation.
type RawResult struct {
	Text      string             `json:"text"`
	Segments  []Segment          `json:"segments"`
	AudioTags []AudioTagInterval `json:"audio_tags"`
}

// TranscriptionResult is the externally visible artifact derived from one RawResult.
type TranscriptionResult struct {
	Text      string             `json:"text"`
	Segments  []Segment          `json:"segments"`
	AudioTags []AudioTagInterval `json:"audio_tags"`
	Hostname  string             `json:"hostname"`
}

// Options controls one engine invocation.
type Options struct {
	TimeResolution    int     // audio tagging time resolution in seconds
	Temperature       float64 // sampling temperature
	NoSpeechThreshold float64 // threshold for declaring a segment non-speech
}

// DefaultOptions returns the standard invocation options.
func DefaultOptions() Options {
	return Options{
		TimeResolution:    10,
		Temperature:       0.01,
		NoSpeechThreshold: 0.4,
	}
}

// Engine converts processed audio into text segments with timing and
// no-speech confidence, plus time-aligned audio-event tags.
type Engine interface {
	Transcribe(ctx context.Context, processed *audio.Processed, opts Options) (*RawResult, error)
}
