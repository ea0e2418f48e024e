// Package output prints the user-facing console messages.
package output

import (
	"fmt"
	"io"
	"time"

	"voicepipe/internal/transcribe"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

// Writer exposes the underlying writer for raw output such as the level meter.
func (f *Formatter) Writer() io.Writer { return f.w }

func (f *Formatter) RecordingStarted(quick bool) {
	if quick {
		fmt.Fprintf(f.w, "🎙️  Recording started. Press Esc to stop and paste.\n")
		return
	}
	fmt.Fprintf(f.w, "🎙️  Recording started. Press 1-5 to stop and choose, or Ctrl+C.\n")
	f.Menu()
}

func (f *Formatter) RecordingStopped(duration time.Duration) {
	fmt.Fprintf(f.w, "\n🛑 Recording stopped. Duration: %.2f seconds\n", duration.Seconds())
}

func (f *Formatter) Transcribing() {
	fmt.Fprintf(f.w, "\n🧠 Transcribing...\n")
}

func (f *Formatter) Transcript(text string) {
	fmt.Fprintf(f.w, "📝 Transcription complete.\n\n%s\n", text)
}

// Stats prints the timing block shown after every transcription.
func (f *Formatter) Stats(s transcribe.Stats, chars int, savedTo string) {
	fmt.Fprintf(f.w, "\n📊 Stats:\n")
	if s.DurationEstimated {
		fmt.Fprintf(f.w, " - Input duration       : unknown (estimated as transcription time)\n")
		fmt.Fprintf(f.w, " - Real-time factor     : %.2fx (estimated)\n", s.RTF)
	} else {
		fmt.Fprintf(f.w, " - Input duration       : %.2f seconds\n", s.InputDuration.Seconds())
		fmt.Fprintf(f.w, " - Real-time factor     : %.2fx\n", s.RTF)
	}
	fmt.Fprintf(f.w, " - Model load time      : %.2f seconds\n", s.LoadTime.Seconds())
	fmt.Fprintf(f.w, " - Transcription time   : %.2f seconds\n", s.TranscribeTime.Seconds())
	fmt.Fprintf(f.w, " - Output text length   : %d characters\n", chars)
	if savedTo != "" {
		fmt.Fprintf(f.w, " - Saved to             : %s\n", savedTo)
	}
}

func (f *Formatter) Menu() {
	fmt.Fprintf(f.w, "  1) display the text\n")
	fmt.Fprintf(f.w, "  2) paste into the open chat tab\n")
	fmt.Fprintf(f.w, "  3) paste into a new chat tab\n")
	fmt.Fprintf(f.w, "  4) clean up with the local LLM\n")
	fmt.Fprintf(f.w, "  5) discard audio and transcript\n")
}

func (f *Formatter) Prompt() {
	fmt.Fprintf(f.w, "Choose an action [1-5]: ")
}

func (f *Formatter) Copied() {
	fmt.Fprintf(f.w, "📋 Copied to clipboard.\n")
}

func (f *Formatter) Cleaned(text, folder string, elapsed time.Duration) {
	fmt.Fprintf(f.w, "\n💬 Cleaned text:\n\n%s\n", text)
	if folder != "" {
		fmt.Fprintf(f.w, "\n📁 Session renamed: %s\n", folder)
	}
	fmt.Fprintf(f.w, "\n⏱️ Response time: %.2f seconds\n", elapsed.Seconds())
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

// Duration renders d as 1h02m03s, 2m03s or 3s.
func Duration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
