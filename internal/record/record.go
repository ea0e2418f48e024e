package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gordonklaus/portaudio"

	"voicepipe/internal/logging"
)

// ErrDeviceUnavailable is returned when the default input device cannot be
// opened or started.
var ErrDeviceUnavailable = errors.New("audio input device unavailable")

const framesPerBuffer = 1024

// Options configures a Recorder.
type Options struct {
	SampleRate int
	Channels   int
	// Meter receives the live level bar. Nil disables it.
	Meter io.Writer
	// OnStart runs once the stream is capturing, before the first frame is read.
	OnStart func()
	Debug   bool
}

// Result is returned when a recording completes.
type Result struct {
	Path     string
	Duration time.Duration
	Frames   int
}

// Recorder captures the default input device into a WAV file.
type Recorder struct {
	opts Options
	log  *logging.Logger
}

// New creates a recorder.
func New(opts Options) *Recorder {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	return &Recorder{opts: opts, log: logging.New(logging.CategoryRecord, opts.Debug)}
}

// Record captures audio into path until ctx is cancelled. The WAV file is
// flushed and closed before Record returns.
func (r *Recorder) Record(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path}

	if err := portaudio.Initialize(); err != nil {
		return res, fmt.Errorf("%w: portaudio init failed: %v", ErrDeviceUnavailable, err)
	}
	defer portaudio.Terminate()

	in := make([]int16, framesPerBuffer*r.opts.Channels)
	stream, err := portaudio.OpenDefaultStream(r.opts.Channels, 0, float64(r.opts.SampleRate), framesPerBuffer, in)
	if err != nil {
		return res, fmt.Errorf("%w: open stream failed: %v", ErrDeviceUnavailable, err)
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return res, fmt.Errorf("create wav failed: %w", err)
	}
	sink := NewSink(file, r.opts.SampleRate, r.opts.Channels)
	if r.opts.Meter != nil {
		sink.Meter = NewLevelMeter(r.opts.Meter)
	}

	if err := stream.Start(); err != nil {
		_ = sink.Close()
		_ = file.Close()
		_ = os.Remove(path)
		return res, fmt.Errorf("%w: start stream failed: %v", ErrDeviceUnavailable, err)
	}
	started := time.Now()
	r.log.Debugf("capturing %d Hz x%d into %s", r.opts.SampleRate, r.opts.Channels, path)
	if r.opts.OnStart != nil {
		r.opts.OnStart()
	}

	var loopErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		default:
		}
		if err := stream.Read(); err != nil {
			// overflows are reported but the captured frames are still usable
			r.log.Debugf("stream read error: %v", err)
			if !errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
		}
		if err := sink.Write(in); err != nil {
			loopErr = fmt.Errorf("wav write failed: %w", err)
			break loop
		}
	}

	res.Duration = time.Since(started)
	_ = stream.Stop()
	if sink.Meter != nil {
		sink.Meter.Done()
	}

	closeErr := sink.Close()
	if err := file.Close(); closeErr == nil {
		closeErr = err
	}
	res.Frames = sink.Frames()
	if loopErr != nil {
		return res, loopErr
	}
	if closeErr != nil {
		return res, fmt.Errorf("wav close failed: %w", closeErr)
	}
	r.log.Debugf("stopped after %v, %d frames", res.Duration, res.Frames)
	return res, nil
}
