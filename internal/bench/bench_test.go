package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voicepipe/internal/asr"
)

type rowEngine struct{ text string }

func (e rowEngine) Name() string { return "fake" }

func (e rowEngine) Transcribe(ctx context.Context, path string) ([]string, error) {
	return []string{e.text}, nil
}

func (e rowEngine) Close() error { return nil }

func testFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func opener(texts map[string]string) Opener {
	return func(r Row) (asr.Engine, error) {
		text, ok := texts[r.Name()]
		if !ok {
			return nil, fmt.Errorf("no model %s", r.Model)
		}
		return rowEngine{text: text}, nil
	}
}

func TestFindDifferences(t *testing.T) {
	diffs := FindDifferences("The quick brown fox jumps", "the quick browne fox leaps over")
	if len(diffs) != 2 {
		t.Fatalf("expected 2 diffs, got %v", diffs)
	}
	if diffs[0] != (Diff{"brown", "browne"}) || diffs[1] != (Diff{"jumps", "leaps"}) {
		t.Fatalf("unexpected diffs %v", diffs)
	}
	if d := FindDifferences("same words", "SAME words"); len(d) != 0 {
		t.Fatalf("case should be ignored, got %v", d)
	}
}

func TestBenchmarkSkipsFailingRows(t *testing.T) {
	rows := []Row{{"medium", "float16", 5, 5}, {"tiny", "int8", 1, 1}, {"small", "int8", 1, 1}}
	var buf bytes.Buffer
	r := NewRunner(opener(map[string]string{
		"medium/float16/beam=5": "hello world",
		"small/int8/beam=1":     strings.Repeat("a", 250),
	}), &buf)
	results := r.Benchmark(context.Background(), testFile(t), "fake", rows)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	out := buf.String()
	for _, want := range []string{"ERROR: no model tiny", "SUMMARY", "DAEMON VALUE ANALYSIS", "Average medium model load time", strings.Repeat("a", 200) + "..."} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestCompareLimitsShownDifferences(t *testing.T) {
	ref := strings.TrimSpace(strings.Repeat("a ", 25))
	other := strings.TrimSpace(strings.Repeat("b ", 25))
	rows := []Row{{"medium", "float16", 5, 5}, {"tiny", "int8", 1, 1}}
	var buf bytes.Buffer
	r := NewRunner(opener(map[string]string{
		"medium/float16/beam=5": ref,
		"tiny/int8/beam=1":      other,
	}), &buf)
	if _, err := r.Compare(context.Background(), testFile(t), rows); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "'a' -> 'b'") != 20 {
		t.Fatalf("expected 20 shown differences:\n%s", out)
	}
	if !strings.Contains(out, "... and 5 more") {
		t.Fatalf("missing overflow line:\n%s", out)
	}
}

func TestCompareNoResults(t *testing.T) {
	r := NewRunner(opener(nil), &bytes.Buffer{})
	_, err := r.Compare(context.Background(), testFile(t), []Row{{"medium", "float16", 5, 5}})
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestDaemonSaving(t *testing.T) {
	results := []Result{
		{Row: Row{Model: "medium"}, LoadTime: 4 * time.Second},
		{Row: Row{Model: "medium"}, LoadTime: 2 * time.Second},
		{Row: Row{Model: "tiny"}, LoadTime: 0},
	}
	all, medium, ok := DaemonSaving(results)
	if !ok || all != 2*time.Second || medium != 3*time.Second {
		t.Fatalf("got all=%v medium=%v ok=%v", all, medium, ok)
	}
	if _, _, ok := DaemonSaving(results[2:]); ok {
		t.Fatalf("no medium rows should report ok=false")
	}
}

func TestLoadMatrixOverridesLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.yaml")
	data := "bench:\n  - model: small\n    compute: int8\n    beam: 2\n    best_of: 3\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := LoadMatrix(path)
	if err != nil {
		t.Fatalf("LoadMatrix: %v", err)
	}
	if len(m.Bench) != 1 || m.Bench[0] != (Row{"small", "int8", 2, 3}) {
		t.Fatalf("unexpected bench rows %v", m.Bench)
	}
	if len(m.Compare) != len(DefaultMatrix().Compare) {
		t.Fatalf("compare rows should keep defaults")
	}
}

func TestLoadMatrixRejectsBadRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.yaml")
	if err := os.WriteFile(path, []byte("compare:\n  - model: tiny\n    compute: fp8\n    beam: 1\n    best_of: 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadMatrix(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLatestRecording(t *testing.T) {
	root := t.TempDir()
	older := filepath.Join(root, "2026-01-30", "10-00-00", "audio.wav")
	newer := filepath.Join(root, "2026-01-31", "14-58-08", "audio.wav")
	for _, p := range []string{older, newer} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	got, err := LatestRecording(root)
	if err != nil {
		t.Fatalf("LatestRecording: %v", err)
	}
	if got != newer {
		t.Fatalf("expected %s, got %s", newer, got)
	}
	if _, err := LatestRecording(t.TempDir()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
