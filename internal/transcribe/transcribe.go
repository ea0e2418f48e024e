// Package transcribe runs an asr.Engine over a finished audio file and
// measures how long it took relative to the audio.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voicepipe/internal/asr"
	"voicepipe/internal/audio"
)

var (
	ErrInputNotFound     = errors.New("input file not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Stats describe one transcription.
type Stats struct {
	LoadTime       time.Duration
	TranscribeTime time.Duration
	InputDuration  time.Duration
	RTF            float64
	// DurationEstimated is set when the input duration could not be
	// determined and the transcription time was used in its place.
	DurationEstimated bool
}

// Result is the joined text plus its stats.
type Result struct {
	Text  string
	Stats Stats
}

// OpenFunc builds (and for local engines, loads) an engine.
type OpenFunc func() (asr.Engine, error)

// DurationFunc probes the playing time of an audio file.
type DurationFunc func(ctx context.Context, path string) (time.Duration, error)

// Transcriber owns a loaded engine.
type Transcriber struct {
	engine   asr.Engine
	loadTime time.Duration
	probe    DurationFunc
}

// Load opens the engine and records how long that took.
func Load(open OpenFunc) (*Transcriber, error) {
	start := time.Now()
	engine, err := open()
	if err != nil {
		return nil, err
	}
	return &Transcriber{engine: engine, loadTime: time.Since(start), probe: audio.Duration}, nil
}

// WithProbe replaces the duration probe.
func (t *Transcriber) WithProbe(probe DurationFunc) *Transcriber {
	t.probe = probe
	return t
}

// Engine returns the underlying engine.
func (t *Transcriber) Engine() asr.Engine { return t.engine }

// LoadTime is the time Load spent opening the engine.
func (t *Transcriber) LoadTime() time.Duration { return t.loadTime }

// Close releases the engine.
func (t *Transcriber) Close() error { return t.engine.Close() }

// Validate checks that path exists and has a supported extension.
func Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInputNotFound, path)
	}
	if !audio.Supported(path) {
		return fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedFormat, filepath.Ext(path), strings.Join(audio.SupportedExts, " "))
	}
	return nil
}

// Transcribe runs the engine over path. knownDuration is used for the RTF
// when positive, otherwise the file is probed.
func (t *Transcriber) Transcribe(ctx context.Context, path string, knownDuration time.Duration) (Result, error) {
	if err := Validate(path); err != nil {
		return Result{}, err
	}
	start := time.Now()
	segments, err := t.engine.Transcribe(ctx, path)
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("%s transcription failed: %w", t.engine.Name(), err)
	}

	d := knownDuration
	if d <= 0 && t.probe != nil {
		if probed, err := t.probe(ctx, path); err == nil {
			d = probed
		}
	}
	return Result{
		Text:  Join(segments),
		Stats: ComputeStats(t.loadTime, elapsed, d),
	}, nil
}

// Join concatenates segments with single spaces and trims the result.
func Join(segments []string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// ComputeStats derives the real-time factor. An unknown (non-positive) input
// duration falls back to the transcription time, giving an RTF of 1.0.
func ComputeStats(load, transcribe, input time.Duration) Stats {
	s := Stats{LoadTime: load, TranscribeTime: transcribe, InputDuration: input}
	if input <= 0 {
		s.InputDuration = transcribe
		s.DurationEstimated = true
		s.RTF = 1.0
		return s
	}
	s.RTF = transcribe.Seconds() / input.Seconds()
	return s
}
