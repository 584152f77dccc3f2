package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// writeWav persists samples as a 16-bit mono PCM wav in the temp directory
// and returns the file path.
func writeWav(samples []float32, sampleRate int) (string, error) {
	f, err := os.CreateTemp("", "hark-processed-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create wav file: %w", err)
	}

	w := bufio.NewWriter(f)
	dataSize := len(samples) * 2

	// RIFF header
	w.WriteString("RIFF")
	binary.Write(w, binary.LittleEndian, uint32(36+dataSize))
	w.WriteString("WAVE")

	// fmt chunk: PCM, mono, 16-bit
	w.WriteString("fmt ")
	binary.Write(w, binary.LittleEndian, uint32(16))
	binary.Write(w, binary.LittleEndian, uint16(1))
	binary.Write(w, binary.LittleEndian, uint16(1))
	binary.Write(w, binary.LittleEndian, uint32(sampleRate))
	binary.Write(w, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(w, binary.LittleEndian, uint16(2))
	binary.Write(w, binary.LittleEndian, uint16(16))

	// data chunk
	w.WriteString("data")
	binary.Write(w, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.Write(w, binary.LittleEndian, int16(s*32767))
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write wav data: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close wav file: %w", err)
	}
	return f.Name(), nil
}
