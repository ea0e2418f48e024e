//go:build whispercpp

package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"voicepipe/internal/audio"
	"voicepipe/internal/config"
	"voicepipe/internal/logging"
)

// WhisperCPP runs whisper.cpp in-process through its Go binding.
type WhisperCPP struct {
	mu     sync.Mutex
	model  whisper.Model
	params Params
	log    *logging.Logger
}

// NewWhisperCPP loads the ggml model at modelPath.
func NewWhisperCPP(modelPath string, p Params, log *logging.Logger) (Engine, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file %s: %w", modelPath, err)
	}
	log.Debugf("loading model %s", modelPath)
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model: %w", err)
	}
	return &WhisperCPP{model: model, params: p, log: log}, nil
}

func (w *WhisperCPP) Name() string { return config.EngineWhisperCPP }

// Transcribe decodes path to 16 kHz mono and runs the model over it.
func (w *WhisperCPP) Transcribe(ctx context.Context, path string) ([]string, error) {
	samples, err := audio.LoadMono16k(ctx, path)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper context: %w", err)
	}
	if w.params.Language != "" {
		if err := wctx.SetLanguage(w.params.Language); err != nil {
			return nil, fmt.Errorf("language %q: %w", w.params.Language, err)
		}
	} else {
		_ = wctx.SetLanguage("auto")
	}
	wctx.SetTranslate(false)
	if w.params.BeamSize > 0 {
		wctx.SetBeamSize(w.params.BeamSize)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to process audio: %w", err)
	}

	var segments []string
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			segments = append(segments, text)
		}
	}
	w.log.Debugf("%d segments", len(segments))
	return segments, nil
}

func (w *WhisperCPP) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model != nil {
		err := w.model.Close()
		w.model = nil
		return err
	}
	return nil
}
