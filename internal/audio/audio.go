// Package audio inspects and decodes input files for the transcription
// engines.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"voicepipe/internal/audio/ffmpeg"
)

// SupportedExts lists the input extensions accepted for transcription.
var SupportedExts = []string{".wav", ".mp3", ".ogg", ".m4a", ".flac", ".opus"}

// Supported reports whether path has a supported extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExts {
		if e == ext {
			return true
		}
	}
	return false
}

// Format describes a WAV file's PCM layout.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// WavFormat reads the header of a WAV file.
func WavFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Format{}, fmt.Errorf("%s is not a valid wav file", path)
	}
	return Format{SampleRate: int(dec.SampleRate), Channels: int(dec.NumChans), BitDepth: int(dec.BitDepth)}, nil
}

// Duration returns the playing time of path: from the WAV header when
// possible, otherwise from ffprobe.
func Duration(ctx context.Context, path string) (time.Duration, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		if d, err := wavDuration(path); err == nil {
			return d, nil
		}
	}
	return ffmpeg.ProbeDuration(ctx, path)
}

func wavDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, errors.New("invalid wav file")
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("empty wav file")
	}
	return d, nil
}

// LoadMono16k returns path as mono float32 samples in [-1, 1] at 16 kHz.
// Inputs in any other layout are converted with ffmpeg into a temporary file.
func LoadMono16k(ctx context.Context, path string) ([]float32, error) {
	src := path
	if fmtInfo, err := WavFormat(path); err != nil || fmtInfo.SampleRate != 16000 || fmtInfo.Channels != 1 {
		tmp, err := os.CreateTemp("", "voicepipe-*.wav")
		if err != nil {
			return nil, err
		}
		tmpPath := tmp.Name()
		_ = tmp.Close()
		defer os.Remove(tmpPath)
		if err := ffmpeg.ToWav(ctx, path, tmpPath, 16000, 1); err != nil {
			return nil, err
		}
		src = tmpPath
	}
	return readWavFloat32(src)
}

// LoadPCM16 returns path as 16 kHz mono little-endian 16-bit PCM bytes,
// converting through ffmpeg when needed.
func LoadPCM16(ctx context.Context, path string) ([]byte, error) {
	samples, err := LoadMono16k(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(clamp(s) * 32767)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out, nil
}

func readWavFloat32(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	depth := int(dec.BitDepth)
	if depth <= 0 {
		depth = 16
	}
	scale := float32(int64(1) << (depth - 1))
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / scale
	}
	return out, nil
}

func clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
