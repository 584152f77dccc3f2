package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hark/internal/engine"
)

func TestTranscribe_SendsMultipartForm(t *testing.T) {
	var (
		gotFilename    string
		gotContentType string
		gotPayload     []byte
		gotFields      = map[string]string{}
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transcribe" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		reader, err := r.MultipartReader()
		if err != nil {
			t.Fatalf("not a multipart request: %v", err)
		}
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("reading part: %v", err)
			}
			data, _ := io.ReadAll(part)
			if part.FormName() == "file" {
				gotFilename = part.FileName()
				gotContentType = part.Header.Get("Content-Type")
				gotPayload = data
			} else {
				gotFields[part.FormName()] = string(data)
			}
		}

		json.NewEncoder(w).Encode(engine.TranscriptionResult{
			Text:     "hello world",
			Hostname: "test-host",
		})
	}))
	defer server.Close()

	c := New(server.URL, 5*time.Second)
	result, err := c.Transcribe(context.Background(), "call.mp3", []byte("fake audio"), engine.Options{
		TimeResolution:    10,
		Temperature:       0.01,
		NoSpeechThreshold: 0.4,
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if result.Text != "hello world" || result.Hostname != "test-host" {
		t.Errorf("unexpected result: %+v", result)
	}
	if gotFilename != "call.mp3" {
		t.Errorf("filename = %q, want call.mp3", gotFilename)
	}
	if gotContentType != "audio/mpeg" {
		t.Errorf("file content type = %q, want audio/mpeg", gotContentType)
	}
	if string(gotPayload) != "fake audio" {
		t.Errorf("payload = %q", gotPayload)
	}

	wantFields := map[string]string{
		"audio_tagging_time_resolution": "10",
		"temperature":                   "0.01",
		"no_speech_threshold":           "0.4",
	}
	for name, want := range wantFields {
		if got := gotFields[name]; got != want {
			t.Errorf("field %s = %q, want %q", name, got, want)
		}
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unsupported file format"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	c := New(server.URL, 5*time.Second)
	_, err := c.Transcribe(context.Background(), "call.wav", []byte("x"), engine.DefaultOptions())
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestCheckServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if !New(server.URL, time.Second).CheckServer(context.Background()) {
		t.Error("expected healthy server to report reachable")
	}

	server.Close()
	if New(server.URL, time.Second).CheckServer(context.Background()) {
		t.Error("expected closed server to report unreachable")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:9007/", time.Second)
	if c.baseURL != "http://localhost:9007" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
}
