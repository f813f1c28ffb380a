package stt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := []int16{1, -1, 100, -100}
	wav := EncodeWAV(samples, 16000)

	if len(wav) != 44+len(samples)*2 {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(samples)*2)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if bits := binary.LittleEndian.Uint16(wav[34:36]); bits != 16 {
		t.Errorf("bit depth = %d, want 16", bits)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); size != uint32(len(samples)*2) {
		t.Errorf("data size = %d, want %d", size, len(samples)*2)
	}
}

func TestHTTPEngineTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not a multipart request: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q, want whisper-1", got)
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file part missing: %v", err)
		}
		defer file.Close()

		head := make([]byte, 4)
		io.ReadFull(file, head)
		if string(head) != "RIFF" {
			t.Error("uploaded audio is not a WAV file")
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text": "  hello world  "}`)
	}))
	defer server.Close()

	engine, err := NewHTTPEngine(WithBaseURL(server.URL), WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("NewHTTPEngine failed: %v", err)
	}
	defer engine.Close()

	text, err := engine.Transcribe(context.Background(), make([]int16, 16000), 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("transcript = %q, want trimmed 'hello world'", text)
	}
}

func TestHTTPEngineEmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text": "   "}`)
	}))
	defer server.Close()

	engine, _ := NewHTTPEngine(WithBaseURL(server.URL))
	defer engine.Close()

	_, err := engine.Transcribe(context.Background(), make([]int16, 100), 16000)
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestHTTPEngineNoSamples(t *testing.T) {
	engine, _ := NewHTTPEngine(WithBaseURL("http://localhost:1"))
	defer engine.Close()

	_, err := engine.Transcribe(context.Background(), nil, 16000)
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestHTTPEngineServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "whisper crashed")
	}))
	defer server.Close()

	engine, _ := NewHTTPEngine(WithBaseURL(server.URL))
	defer engine.Close()

	_, err := engine.Transcribe(context.Background(), make([]int16, 100), 16000)
	if err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestMockScripted(t *testing.T) {
	m := &Mock{Scripted: []string{"first", "second"}}

	for _, want := range []string{"first", "second"} {
		got, err := m.Transcribe(context.Background(), nil, 16000)
		if err != nil || got != want {
			t.Errorf("Transcribe = %q, %v; want %q", got, err, want)
		}
	}

	if _, err := m.Transcribe(context.Background(), nil, 16000); !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("expected ErrEmptyTranscript after script, got %v", err)
	}
}
