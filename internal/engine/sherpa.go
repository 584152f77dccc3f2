package engine

import (
	"context"
	"fmt"
	"os"
	"strings"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"hark/internal/audio"
)

// SherpaConfig holds model paths for the sherpa-onnx backed engine.
type SherpaConfig struct {
	WhisperEncoder string
	WhisperDecoder string
	WhisperTokens  string
	TaggingModel   string // zipformer audio tagging model
	TaggingLabels  string // AudioSet class labels csv
	Language       string // empty for auto-detect
	NumThreads     int
	TopK           int // tag labels per interval
}

// Validate checks that all model files exist.
func (c *SherpaConfig) Validate() error {
	files := map[string]string{
		"whisper encoder": c.WhisperEncoder,
		"whisper decoder": c.WhisperDecoder,
		"whisper tokens":  c.WhisperTokens,
		"tagging model":   c.TaggingModel,
		"tagging labels":  c.TaggingLabels,
	}
	for name, path := range files {
		if path == "" {
			return fmt.Errorf("%s path not configured", name)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("%s file not found: %s", name, path)
		}
	}
	return nil
}

// SherpaEngine implements Engine with a whisper recognizer for speech and a
// zipformer AudioSet tagger for sound events. It is loaded once at service
// start and is safe for concurrent read-only use across requests.
type SherpaEngine struct {
	config     *SherpaConfig
	recognizer *sherpa.OfflineRecognizer
	tagger     *sherpa.AudioTagging
}

// NewSherpaEngine creates the engine from the given model configuration.
func NewSherpaEngine(config *SherpaConfig) (*SherpaEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.NumThreads <= 0 {
		config.NumThreads = 2
	}
	if config.TopK <= 0 {
		config.TopK = 3
	}

	recognizerConfig := sherpa.OfflineRecognizerConfig{
		FeatConfig: sherpa.FeatureConfig{
			SampleRate: audio.TargetSampleRate,
			FeatureDim: 80,
		},
		ModelConfig: sherpa.OfflineModelConfig{
			Whisper: sherpa.OfflineWhisperModelConfig{
				Encoder:  config.WhisperEncoder,
				Decoder:  config.WhisperDecoder,
				Language: config.Language,
				Task:     "transcribe",
			},
			Tokens:     config.WhisperTokens,
			NumThreads: config.NumThreads,
			Debug:      0,
		},
	}

	recognizer := sherpa.NewOfflineRecognizer(&recognizerConfig)
	if recognizer == nil {
		return nil, fmt.Errorf("failed to create whisper recognizer")
	}

	var taggingConfig sherpa.AudioTaggingConfig
	taggingConfig.Model.Zipformer.Model = config.TaggingModel
	taggingConfig.Model.NumThreads = int32(config.NumThreads)
	taggingConfig.Model.Debug = 0
	taggingConfig.Labels = config.TaggingLabels
	taggingConfig.TopK = int32(config.TopK)

	tagger := sherpa.NewAudioTagging(&taggingConfig)
	if tagger == nil {
		sherpa.DeleteOfflineRecognizer(recognizer)
		return nil, fmt.Errorf("failed to create audio tagger")
	}

	return &SherpaEngine{
		config:     config,
		recognizer: recognizer,
		tagger:     tagger,
	}, nil
}

// Close releases the underlying models.
func (e *SherpaEngine) Close() {
	if e.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(e.recognizer)
		e.recognizer = nil
	}
	if e.tagger != nil {
		sherpa.DeleteAudioTagging(e.tagger)
		e.tagger = nil
	}
}

// Transcribe decodes the processed audio in windows of the tagging time
// resolution. Each window yields one speech segment (when text was
// recognized) and one audio-tag interval (when any event was detected).
func (e *SherpaEngine) Transcribe(ctx context.Context, processed *audio.Processed, opts Options) (*RawResult, error) {
	windowSec := opts.TimeResolution
	if windowSec <= 0 {
		windowSec = DefaultOptions().TimeResolution
	}
	windowSamples := processed.SampleRate * windowSec

	raw := &RawResult{
		Segments:  []Segment{},
		AudioTags: []AudioTagInterval{},
	}
	var texts []string

	for offset := 0; offset < len(processed.Samples); offset += windowSamples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := offset + windowSamples
		if end > len(processed.Samples) {
			end = len(processed.Samples)
		}
		window := processed.Samples[offset:end]

		startSec := float64(offset) / float64(processed.SampleRate)
		endSec := float64(end) / float64(processed.SampleRate)

		text := e.decodeWindow(window, processed.SampleRate)
		if text != "" {
			prob := noSpeechEstimate(window)
			raw.Segments = append(raw.Segments, Segment{
				Start:        startSec,
				End:          endSec,
				Text:         text,
				NoSpeechProb: &prob,
			})
			texts = append(texts, text)
		}

		tags := e.tagWindow(window, processed.SampleRate)
		if len(tags) > 0 {
			raw.AudioTags = append(raw.AudioTags, AudioTagInterval{
				Start: startSec,
				End:   endSec,
				Tags:  tags,
			})
		}
	}

	raw.Text = strings.Join(texts, " ")
	return raw, nil
}

// decodeWindow runs whisper over one window and returns the trimmed text.
func (e *SherpaEngine) decodeWindow(samples []float32, sampleRate int) string {
	if len(samples) == 0 {
		return ""
	}

	stream := sherpa.NewOfflineStream(e.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(sampleRate, samples)
	e.recognizer.Decode(stream)

	result := stream.GetResult()
	if result == nil {
		return ""
	}
	return strings.TrimSpace(result.Text)
}

// tagWindow runs the AudioSet tagger over one window.
func (e *SherpaEngine) tagWindow(samples []float32, sampleRate int) []Tag {
	if len(samples) == 0 {
		return nil
	}

	stream := sherpa.NewAudioTaggingStream(e.tagger)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(sampleRate, samples)

	var tags []Tag
	for _, event := range e.tagger.Compute(stream, int32(e.config.TopK)) {
		tags = append(tags, Tag{
			Label: event.Name,
			Score: float64(event.Prob),
		})
	}
	return tags
}

// noSpeechEstimate derives a no-speech probability from the fraction of
// gated-out samples in the window. The preprocessor zeroes everything below
// the gate threshold, so the nonzero fraction tracks speech energy.
func noSpeechEstimate(samples []float32) float64 {
	if len(samples) == 0 {
		return 1.0
	}
	active := 0
	for _, s := range samples {
		if s != 0 {
			active++
		}
	}
	prob := 1.0 - float64(active)/float64(len(samples))
	if prob < 0 {
		prob = 0
	}
	return prob
}
