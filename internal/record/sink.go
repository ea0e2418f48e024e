package record

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sink encodes 16-bit PCM frames into a streaming WAV file.
type Sink struct {
	enc      *wav.Encoder
	format   *audio.Format
	channels int
	intBuf   []int
	samples  int
	Meter    *LevelMeter
}

// NewSink writes a 16-bit PCM WAV header to w and returns a sink for frames.
func NewSink(w io.WriteSeeker, sampleRate, channels int) *Sink {
	return &Sink{
		enc:      wav.NewEncoder(w, sampleRate, 16, channels, 1),
		format:   &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		channels: channels,
	}
}

// Write appends interleaved samples.
func (s *Sink) Write(samples []int16) error {
	if cap(s.intBuf) < len(samples) {
		s.intBuf = make([]int, len(samples))
	}
	buf := s.intBuf[:len(samples)]
	for i, v := range samples {
		buf[i] = int(v)
	}
	if err := s.enc.Write(&audio.IntBuffer{Format: s.format, Data: buf, SourceBitDepth: 16}); err != nil {
		return err
	}
	s.samples += len(samples)
	if s.Meter != nil {
		s.Meter.Update(samples)
	}
	return nil
}

// Frames reports how many frames (samples per channel) were written.
func (s *Sink) Frames() int {
	return s.samples / s.channels
}

// Close finalizes the WAV header. The underlying writer stays open.
func (s *Sink) Close() error {
	return s.enc.Close()
}

const barWidth = 30

// LevelMeter prints an RMS level bar, rewriting the line only on change.
type LevelMeter struct {
	w    io.Writer
	last string
}

func NewLevelMeter(w io.Writer) *LevelMeter {
	return &LevelMeter{w: w}
}

// Update renders the level of samples.
func (m *LevelMeter) Update(samples []int16) {
	bar := LevelBar(RMS(samples))
	if bar == m.last {
		return
	}
	m.last = bar
	fmt.Fprintf(m.w, "\r🎙️ Mic Level: %s", bar)
}

// Done ends the meter line.
func (m *LevelMeter) Done() {
	if m.last != "" {
		fmt.Fprintln(m.w)
	}
}

// RMS returns the root mean square of samples scaled to [0, 1].
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		f := float64(v) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// LevelBar renders rms as a fixed-width bar. Speech rarely exceeds 0.1 RMS so
// the scale saturates there.
func LevelBar(rms float64) string {
	n := int(rms * barWidth * 10)
	if n > barWidth {
		n = barWidth
	}
	if n < 0 {
		n = 0
	}
	return "[" + strings.Repeat("█", n) + strings.Repeat(" ", barWidth-n) + "]"
}
