package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func modelFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("stub"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func validConfig(t *testing.T) *SherpaConfig {
	return &SherpaConfig{
		WhisperEncoder: modelFixture(t, "encoder.onnx"),
		WhisperDecoder: modelFixture(t, "decoder.onnx"),
		WhisperTokens:  modelFixture(t, "tokens.txt"),
		TaggingModel:   modelFixture(t, "tagging.onnx"),
		TaggingLabels:  modelFixture(t, "labels.csv"),
	}
}

func TestSherpaConfigValidate(t *testing.T) {
	if err := validConfig(t).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	t.Run("unconfigured path", func(t *testing.T) {
		config := validConfig(t)
		config.TaggingModel = ""
		if err := config.Validate(); err == nil {
			t.Error("expected error for empty tagging model path")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		config := validConfig(t)
		config.WhisperEncoder = filepath.Join(t.TempDir(), "absent.onnx")
		if err := config.Validate(); err == nil {
			t.Error("expected error for missing encoder file")
		}
	})
}

func TestNewSherpaEngine_InvalidConfig(t *testing.T) {
	if _, err := NewSherpaEngine(&SherpaConfig{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestNoSpeechEstimate(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    float64
	}{
		{"empty window", nil, 1.0},
		{"all gated out", []float32{0, 0, 0, 0}, 1.0},
		{"all active", []float32{0.5, -0.5, 0.3, 0.9}, 0.0},
		{"half active", []float32{0, 0.5, 0, -0.3}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := noSpeechEstimate(tt.samples); got != tt.want {
				t.Errorf("noSpeechEstimate() = %v, want %v", got, tt.want)
			}
		})
	}
}
