package asr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gorilla/websocket"

	"voicepipe/internal/config"
	"voicepipe/internal/logging"
)

func tempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &audio.IntBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: 16000}, Data: make([]int, 16000), SourceBitDepth: 16}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func testLogger() *logging.Logger {
	return logging.New(logging.CategoryASR, false)
}

func TestServerRetryExhaustedError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("fail"))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.APIEndpoint = server.URL
	cfg.MaxRetry = 2
	cfg.RetryBaseDelay = 0

	engine := NewServer(cfg, ParamsFromConfig(cfg), server.Client(), testLogger())
	_, err := engine.Transcribe(context.Background(), tempAudio(t))
	if err == nil {
		t.Fatalf("expected error")
	}
	var re *RetryExhaustedError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryExhaustedError, got %T: %v", err, err)
	}
	if re.Attempts != 2 || re.MaxRetry != 2 {
		t.Fatalf("expected 2/2 attempts, got %d/%d", re.Attempts, re.MaxRetry)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
}

func TestServerDefaultsToSingleAttempt(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.APIEndpoint = server.URL
	engine := NewServer(cfg, ParamsFromConfig(cfg), server.Client(), testLogger())
	if _, err := engine.Transcribe(context.Background(), tempAudio(t)); err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one request, got %d", got)
	}
}

func TestServerSendsDecodingParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("beam_size"); got != "3" {
			t.Errorf("beam_size = %q", got)
		}
		if got := r.FormValue("best_of"); got != "2" {
			t.Errorf("best_of = %q", got)
		}
		if got := r.FormValue("model"); got != "small" {
			t.Errorf("model = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			_, _ = io.Copy(io.Discard, file)
			file.Close()
		}
		_, _ = w.Write([]byte(`{"result":{"text":" hello there "}}`))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.APIEndpoint = server.URL
	cfg.Token = "secret"
	cfg.TextPath = "result.text"
	p := Params{ModelSize: "small", BeamSize: 3, BestOf: 2}
	engine := NewServer(cfg, p, server.Client(), testLogger())
	segs, err := engine.Transcribe(context.Background(), tempAudio(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segs) != 1 || segs[0] != " hello there " {
		t.Fatalf("unexpected segments %q", segs)
	}
}

func TestVoskCollectsFinalResults(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil { // config
			return
		}
		chunks := 0
		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.TextMessage && string(msg) == `{"eof": 1}` {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"text": "world"}`))
				return
			}
			chunks++
			if chunks == 1 {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"text": "hello"}`))
			} else {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"partial": "wor"}`))
			}
		}
	}))
	defer server.Close()

	url := "ws" + server.URL[len("http"):]
	engine := NewVosk(url, testLogger())
	segs, err := engine.Transcribe(context.Background(), tempAudio(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segs) != 2 || segs[0] != "hello" || segs[1] != "world" {
		t.Fatalf("unexpected segments %q", segs)
	}
}

func TestModelName(t *testing.T) {
	if got := ModelName("medium", "float16"); got != "ggml-medium.bin" {
		t.Fatalf("got %s", got)
	}
	if got := ModelName("small", "int8"); got != "ggml-small-q8_0.bin" {
		t.Fatalf("got %s", got)
	}
}

func TestNewRejectsUnknownEngine(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Engine = "nope"
	if _, err := New(cfg, ParamsFromConfig(cfg), nil); err == nil {
		t.Fatalf("expected error")
	}
}
