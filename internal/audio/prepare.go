package audio

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// TargetSampleRate is the sample rate expected by the recognition engine.
const TargetSampleRate = 16000

// GateThreshold is the noise gate level as a fraction of full scale.
// Samples below it are zeroed outright; the gate is hard, not smoothed.
const GateThreshold = 0.015

// padSeconds is the silence padding added at each end before resampling.
const padSeconds = 1

// ErrDecode is returned when a payload cannot be decoded as audio.
var ErrDecode = errors.New("audio decode failed")

// SupportedExtensions lists the accepted upload formats.
var SupportedExtensions = []string{".mp3", ".wav", ".m4a", ".flac", ".ogg"}

// IsSupportedExtension checks whether the filename carries an accepted audio extension.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Asset is one uploaded audio payload with its declared extension.
// It exists for the duration of a single request or job.
type Asset struct {
	Data []byte
	Ext  string // includes the leading dot
}

// Processed is conditioned mono PCM at the target sample rate, padded with
// one second of silence at each end, backed by a temporary wav artifact.
// The caller must call Remove on every exit path.
type Processed struct {
	Samples    []float32
	SampleRate int
	Path       string
}

// Remove deletes the temporary wav artifact.
func (p *Processed) Remove() {
	if p == nil || p.Path == "" {
		return
	}
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove temp audio %s: %v", p.Path, err)
	}
	p.Path = ""
}

// Prepare conditions an uploaded asset for recognition: decode at the native
// sample rate, peak-normalize, noise-gate, pad with silence, then resample
// to the target rate.
func Prepare(ctx context.Context, asset *Asset) (*Processed, error) {
	return PrepareWithRate(ctx, asset, 0)
}

// PrepareWithRate is Prepare with the source sample rate overridden.
// forcedRate does not change the decoded samples, only the rate they are
// treated as; the invoker uses it to re-run malformed audio at 8 kHz.
// forcedRate 0 means use the probed native rate.
func PrepareWithRate(ctx context.Context, asset *Asset, forcedRate int) (*Processed, error) {
	in, err := os.CreateTemp("", "hark-upload-*"+asset.Ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(in.Name())

	if _, err := in.Write(asset.Data); err != nil {
		in.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	in.Close()

	nativeRate, err := probeSampleRate(ctx, in.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	samples, err := decodePCM(ctx, in.Name(), nativeRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	log.Printf("Decoded %d samples at %d Hz", len(samples), nativeRate)

	rate := nativeRate
	if forcedRate > 0 {
		rate = forcedRate
	}

	normalizePeak(samples)
	applyGate(samples, GateThreshold)
	samples = padSilence(samples, rate, padSeconds)

	if rate != TargetSampleRate {
		log.Printf("Resampling %d Hz -> %d Hz", rate, TargetSampleRate)
		samples = resampleLinear(samples, rate, TargetSampleRate)
	}

	path, err := writeWav(samples, TargetSampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to persist processed audio: %w", err)
	}

	return &Processed{
		Samples:    samples,
		SampleRate: TargetSampleRate,
		Path:       path,
	}, nil
}

// probeSampleRate reads the first audio stream's sample rate with ffprobe.
func probeSampleRate(ctx context.Context, path string) (int, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return 0, fmt.Errorf("ffprobe not found: please install ffmpeg")
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate",
		"-of", "csv=p=0",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var rate int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%d", &rate); err != nil {
		return 0, fmt.Errorf("failed to parse sample rate: %w", err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("invalid sample rate: %d", rate)
	}
	return rate, nil
}

// decodePCM decodes the file to mono float32 samples at the given rate
// via an ffmpeg s16le pipe.
func decodePCM(ctx context.Context, path string, sampleRate int) ([]float32, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: please install ffmpeg")
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	reader := bufio.NewReader(stdout)
	var samples []float32
	buffer := make([]byte, 4096)
	var leftover byte
	hasLeftover := false

	for {
		n, err := reader.Read(buffer)
		if n > 0 {
			data := buffer[:n]
			if hasLeftover {
				data = append([]byte{leftover}, data...)
				hasLeftover = false
			}
			if len(data)%2 != 0 {
				leftover = data[len(data)-1]
				hasLeftover = true
				data = data[:len(data)-1]
			}
			samples = append(samples, bytesToFloat32(data)...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			cmd.Wait()
			return nil, fmt.Errorf("failed to read audio: %w", err)
		}
	}

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio data decoded")
	}
	return samples, nil
}

// bytesToFloat32 converts 16-bit little-endian PCM to float32 (-1.0 to 1.0).
func bytesToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/2)
	for i := 0; i < len(samples); i++ {
		sample := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// normalizePeak divides all samples by the peak absolute value.
// Pure silence is left unchanged.
func normalizePeak(samples []float32) {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		return
	}
	for i := range samples {
		samples[i] /= peak
	}
}

// applyGate zeroes every sample below the threshold.
func applyGate(samples []float32, threshold float32) {
	for i, s := range samples {
		if s < 0 {
			s = -s
		}
		if s < threshold {
			samples[i] = 0
		}
	}
}

// padSilence adds seconds of silence at both ends, in the given rate.
func padSilence(samples []float32, sampleRate, seconds int) []float32 {
	pad := sampleRate * seconds
	out := make([]float32, 0, len(samples)+2*pad)
	out = append(out, make([]float32, pad)...)
	out = append(out, samples...)
	out = append(out, make([]float32, pad)...)
	return out
}

// resampleLinear resamples with linear interpolation.
func resampleLinear(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 {
		return samples
	}

	n := int(int64(len(samples)) * int64(to) / int64(from))
	if n == 0 {
		n = 1
	}
	step := float64(from) / float64(to)

	out := make([]float32, n)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}
