package postprocess

import (
	"strings"

	"hark/internal/engine"
)

// DialToneText is the sentinel transcript returned when telephony or signal
// tones are detected anywhere in the tag stream.
const DialToneText = "DIAL TONE"

// noSpeechCutoff drops segments the engine considers unlikely to be speech.
// An absent probability counts as no speech.
const noSpeechCutoff = 0.55

// signalToneClasses are the AudioSet classes that trigger the dial-tone
// override, lower-cased.
var signalToneClasses = map[string]struct{}{
	"telephone":                {},
	"telephone bell ringing":   {},
	"ringtone":                 {},
	"telephone dialing, dtmf":  {},
	"dial tone":                {},
	"busy signal":              {},
	"alarm":                    {},
	"alarm clock":              {},
	"siren":                    {},
	"civil defense siren":      {},
	"buzzer":                   {},
	"tearing":                  {},
	"beep":                     {},
	"beep, bleep":              {},
	"ping":                     {},
	"sine wave":                {},
	"echo":                     {},
	"sidetone":                 {},
	"sound effect":             {},
	"cowbell":                  {},
	"vibraphone":               {},
}

// musicClasses are the music/ambient classes whose overlap blanks a
// segment's text, lower-cased.
var musicClasses = map[string]struct{}{
	"music":               {},
	"musical instrument":  {},
	"guitar":              {},
	"drum":                {},
	"television":          {},
	"radio":               {},
	"noise":               {},
	"echo":                {},
	"reverberation":       {},
	"environmental noise": {},
	"knock":               {},
	"tap":                 {},
}

// Finalize derives the externally visible transcription from one raw engine
// result. Deterministic and free of side effects; Hostname is left for the
// caller to fill in.
func Finalize(raw *engine.RawResult) *engine.TranscriptionResult {
	segments := filterNoSpeech(raw.Segments)

	if hasSignalTone(raw.AudioTags) {
		return &engine.TranscriptionResult{
			Text:      DialToneText,
			Segments:  segments,
			AudioTags: raw.AudioTags,
		}
	}

	blankMusicOverlaps(segments, raw.AudioTags)

	return &engine.TranscriptionResult{
		Text:      cleanText(assemble(segments)),
		Segments:  segments,
		AudioTags: raw.AudioTags,
	}
}

// filterNoSpeech keeps segments whose no-speech probability is at or below
// the cutoff. Segments without the probability are dropped.
func filterNoSpeech(segments []engine.Segment) []engine.Segment {
	kept := make([]engine.Segment, 0, len(segments))
	for _, seg := range segments {
		prob := 1.0
		if seg.NoSpeechProb != nil {
			prob = *seg.NoSpeechProb
		}
		if prob <= noSpeechCutoff {
			kept = append(kept, seg)
		}
	}
	return kept
}

// hasSignalTone reports whether any interval anywhere carries a
// telephone/signal-tone class label.
func hasSignalTone(intervals []engine.AudioTagInterval) bool {
	for _, interval := range intervals {
		for _, tag := range interval.Tags {
			if _, ok := signalToneClasses[strings.ToLower(tag.Label)]; ok {
				return true
			}
		}
	}
	return false
}

// blankMusicOverlaps empties the text of every segment that temporally
// overlaps a music/ambient-class interval. The segment itself survives.
func blankMusicOverlaps(segments []engine.Segment, intervals []engine.AudioTagInterval) {
	for i := range segments {
		for _, interval := range intervals {
			if interval.Start >= segments[i].End || interval.End <= segments[i].Start {
				continue
			}
			if hasMusicClass(interval.Tags) {
				segments[i].Text = ""
				break
			}
		}
	}
}

func hasMusicClass(tags []engine.Tag) bool {
	for _, tag := range tags {
		if _, ok := musicClasses[strings.ToLower(tag.Label)]; ok {
			return true
		}
	}
	return false
}

// assemble joins segment texts in time order, collapsing adjacent identical
// texts to one occurrence. Non-adjacent repeats survive: the comparison is
// against the previously emitted text only.
func assemble(segments []engine.Segment) string {
	var parts []string
	prev := ""
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || text == prev {
			continue
		}
		parts = append(parts, text)
		prev = text
	}
	return strings.Join(parts, " ")
}
