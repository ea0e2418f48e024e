// Package asr wraps the speech-recognition backends behind one Engine
// interface.
package asr

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"voicepipe/internal/config"
	"voicepipe/internal/logging"
)

// Engine turns an audio file into recognized text segments.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, path string) ([]string, error)
	Close() error
}

// Params are the decoding parameters shared by all engines.
type Params struct {
	ModelSize   string
	ComputeType string
	BeamSize    int
	BestOf      int
	Language    string
}

// ParamsFromConfig copies the decoding parameters out of cfg.
func ParamsFromConfig(cfg config.Config) Params {
	return Params{
		ModelSize:   cfg.ModelSize,
		ComputeType: cfg.ComputeType,
		BeamSize:    cfg.BeamSize,
		BestOf:      cfg.BestOf,
		Language:    cfg.Language,
	}
}

// ModelName maps a model size and compute type to a ggml model file name.
// int8 selects the q8_0 quantized weights.
func ModelName(size, compute string) string {
	if compute == "int8" {
		return fmt.Sprintf("ggml-%s-q8_0.bin", size)
	}
	return fmt.Sprintf("ggml-%s.bin", size)
}

// ModelPath returns the model file inside dir for p.
func ModelPath(dir string, p Params) string {
	return filepath.Join(dir, ModelName(p.ModelSize, p.ComputeType))
}

// New builds the engine selected by cfg.Engine. For the whispercpp engine this
// loads the model, which is the expensive step callers time as load time.
func New(cfg config.Config, p Params, httpClient *http.Client) (Engine, error) {
	log := logging.New(logging.CategoryASR, cfg.UploadDebug)
	switch cfg.Engine {
	case config.EngineWhisperCPP, "":
		return NewWhisperCPP(ModelPath(cfg.ModelsDir, p), p, log)
	case config.EngineServer:
		return NewServer(cfg, p, httpClient, log), nil
	case config.EngineVosk:
		return NewVosk(cfg.VoskURL, log), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}
