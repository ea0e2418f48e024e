package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voicepipe/internal/asr"
	"voicepipe/internal/session"
	"voicepipe/internal/transcribe"
)

const rule = "================================================================================"

// Opener builds the engine for one row.
type Opener func(Row) (asr.Engine, error)

// Result is one completed row.
type Result struct {
	Row            Row
	LoadTime       time.Duration
	TranscribeTime time.Duration
	Text           string
}

func (r Result) Total() time.Duration { return r.LoadTime + r.TranscribeTime }

// Runner runs rows against a single file.
type Runner struct {
	open Opener
	w    io.Writer
}

func NewRunner(open Opener, w io.Writer) *Runner {
	return &Runner{open: open, w: w}
}

func (r *Runner) run(ctx context.Context, file string, row Row) (Result, error) {
	t, err := transcribe.Load(func() (asr.Engine, error) { return r.open(row) })
	if err != nil {
		return Result{}, err
	}
	defer t.Close()
	res, err := t.Transcribe(ctx, file, 0)
	if err != nil {
		return Result{}, err
	}
	return Result{Row: row, LoadTime: t.LoadTime(), TranscribeTime: res.Stats.TranscribeTime, Text: res.Text}, nil
}

// Benchmark times every row and prints the per-row stats, the summary table,
// text samples and the model-load analysis. Rows that fail are reported and
// skipped.
func (r *Runner) Benchmark(ctx context.Context, file, engine string, rows []Row) []Result {
	fmt.Fprintf(r.w, "Benchmarking transcription configurations\n")
	fmt.Fprintf(r.w, "Test file: %s\n", file)
	fmt.Fprintf(r.w, "Engine: %s\n", engine)
	fmt.Fprintln(r.w, rule)

	var results []Result
	for i, row := range rows {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(r.w, "\n[%d/%d] Testing: %s\n", i+1, len(rows), row.Name())
		res, err := r.run(ctx, file, row)
		if err != nil {
			fmt.Fprintf(r.w, "  ERROR: %v\n", err)
			continue
		}
		results = append(results, res)
		fmt.Fprintf(r.w, "  Load time:       %.2fs\n", res.LoadTime.Seconds())
		fmt.Fprintf(r.w, "  Transcribe time: %.2fs\n", res.TranscribeTime.Seconds())
		fmt.Fprintf(r.w, "  Total time:      %.2fs\n", res.Total().Seconds())
		fmt.Fprintf(r.w, "  Output length:   %d chars\n", len(res.Text))
	}

	r.summary(results)
	r.samples(results)
	r.daemonAnalysis(results)
	return results
}

func (r *Runner) summary(results []Result) {
	fmt.Fprintf(r.w, "\n%s\nSUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(r.w, "%-40s %7s %7s %7s %6s\n", "Config", "Load", "Trans", "Total", "Chars")
	fmt.Fprintln(r.w, strings.Repeat("-", len(rule)))
	for _, res := range results {
		fmt.Fprintf(r.w, "%-40s %6.2fs %6.2fs %6.2fs %6d\n",
			res.Row.Name(), res.LoadTime.Seconds(), res.TranscribeTime.Seconds(), res.Total().Seconds(), len(res.Text))
	}
}

func (r *Runner) samples(results []Result) {
	fmt.Fprintf(r.w, "\n%s\nTRANSCRIPTION SAMPLES (first 200 chars)\n%s\n", rule, rule)
	for _, res := range results {
		fmt.Fprintf(r.w, "\n[%s/%s]\n%s\n", res.Row.Model, res.Row.Compute, Sample(res.Text, 200))
	}
}

// DaemonSaving is the average load time of all rows and of the medium rows.
// ok is false when no medium row succeeded.
func DaemonSaving(results []Result) (all, medium time.Duration, ok bool) {
	if len(results) == 0 {
		return 0, 0, false
	}
	var sum, mediumSum time.Duration
	n := 0
	for _, res := range results {
		sum += res.LoadTime
		if res.Row.Model == "medium" {
			mediumSum += res.LoadTime
			n++
		}
	}
	all = sum / time.Duration(len(results))
	if n == 0 {
		return all, 0, false
	}
	return all, mediumSum / time.Duration(n), true
}

func (r *Runner) daemonAnalysis(results []Result) {
	fmt.Fprintf(r.w, "\n%s\nDAEMON VALUE ANALYSIS\n%s\n", rule, rule)
	all, medium, ok := DaemonSaving(results)
	if !ok {
		return
	}
	fmt.Fprintf(r.w, "Average model load time (all): %.2fs\n", all.Seconds())
	fmt.Fprintf(r.w, "Average medium model load time: %.2fs\n", medium.Seconds())
	fmt.Fprintf(r.w, "A daemon would save ~%.1fs per transcription for medium model\n", medium.Seconds())
}

// Sample truncates text to n bytes on a rune boundary, adding "..." when cut.
func Sample(text string, n int) string {
	if len(text) <= n {
		return text
	}
	cut := n
	for cut > 0 && !utf8RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }

// LatestRecording returns the newest session audio file under root.
func LatestRecording(root string) (string, error) {
	var newest string
	var newestTime time.Time
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || d.Name() != session.AudioFile {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(newestTime) {
			newest, newestTime = path, info.ModTime()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if newest == "" {
		return "", fmt.Errorf("no recordings under %s: %w", root, os.ErrNotExist)
	}
	return newest, nil
}

// ErrNoResults is returned by Compare when no row produced a transcription.
var ErrNoResults = errors.New("no configuration produced a transcription")
