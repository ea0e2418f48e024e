package session

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"voicepipe/internal/config"
)

var fixedTime = time.Date(2026, 1, 31, 14, 58, 8, 0, time.UTC)

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(context.Background(), t.TempDir(), config.DefaultFolderTemplate, fixedTime)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewCreatesTimestampedFolder(t *testing.T) {
	s := newSession(t)
	dir := s.Dir()
	if filepath.Base(dir) != "14-58-08" || filepath.Base(filepath.Dir(dir)) != "2026-01-31" {
		t.Fatalf("unexpected session dir %s", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("session dir missing: %v", err)
	}
	if filepath.Base(s.AudioPath()) != AudioFile || filepath.Base(s.TranscriptPath()) != TranscriptFile {
		t.Fatalf("unexpected file names %s %s", s.AudioPath(), s.TranscriptPath())
	}
}

func TestRenderFolderNameRejectsBadTemplate(t *testing.T) {
	if _, err := RenderFolderName("{{.Nope", fixedTime); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := RenderFolderName("/", fixedTime); err == nil {
		t.Fatalf("expected empty name error")
	}
}

func TestChooseFirstWriterWins(t *testing.T) {
	s := newSession(t)

	var wg sync.WaitGroup
	wins := make(chan bool, 5)
	for a := ActionDisplay; a <= ActionDiscard; a++ {
		wg.Add(1)
		go func(a Action) {
			defer wg.Done()
			wins <- s.Choose(a)
		}(a)
	}
	wg.Wait()
	close(wins)

	n := 0
	for w := range wins {
		if w {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("expected exactly one winner, got %d", n)
	}
	select {
	case <-s.Context().Done():
	default:
		t.Fatalf("Choose must stop the session")
	}
	if a := s.Action(); !a.Valid() {
		t.Fatalf("expected a valid action, got %v", a)
	}
	if a := s.Action(); a != ActionNone {
		t.Fatalf("slot must be read once, got %v", a)
	}
}

func TestActionNoneWhenStoppedWithoutChoice(t *testing.T) {
	s := newSession(t)
	s.Stop()
	s.Stop()
	if a := s.Action(); a != ActionNone {
		t.Fatalf("expected ActionNone, got %v", a)
	}
}

func TestWriteTranscriptVerbatim(t *testing.T) {
	s := newSession(t)
	text := " Hello world.  Second  line\n"
	if err := s.WriteTranscript(text); err != nil {
		t.Fatalf("WriteTranscript failed: %v", err)
	}
	got, err := os.ReadFile(s.TranscriptPath())
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(got) != text {
		t.Fatalf("transcript mismatch: %q vs %q", got, text)
	}
	if err := s.WriteTranscript(""); err != nil {
		t.Fatalf("empty transcript must be written: %v", err)
	}
	if info, err := os.Stat(s.TranscriptPath()); err != nil || info.Size() != 0 {
		t.Fatalf("expected empty transcript file, err=%v", err)
	}
}

func TestDiscardToleratesMissingFiles(t *testing.T) {
	s := newSession(t)
	if err := os.WriteFile(s.AudioPath(), []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if err := s.Discard(); err != nil {
		t.Fatalf("Discard with transcript missing: %v", err)
	}
	if err := s.Discard(); err != nil {
		t.Fatalf("Discard with both missing: %v", err)
	}
	for _, p := range []string{s.AudioPath(), s.TranscriptPath()} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s still present", p)
		}
	}
}

func TestRenameAppendsSlug(t *testing.T) {
	s := newSession(t)
	if err := s.WriteTranscript("text"); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	old := s.Dir()

	dir, err := s.Rename("Mercury Dashboard Redesign.txt")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if filepath.Base(dir) != "14-58-08_mercury-dashboard-redesign" {
		t.Fatalf("unexpected renamed dir %s", dir)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("old dir still present")
	}
	if _, err := os.Stat(s.TranscriptPath()); err != nil {
		t.Fatalf("transcript not found after rename: %v", err)
	}

	same, err := s.Rename("   ")
	if err != nil || same != dir {
		t.Fatalf("empty name must be a no-op, got %s %v", same, err)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Mercury dashboard": "mercury-dashboard",
		"  api_bug-fix.md ": "api-bug-fix",
		"../../etc/passwd":  "etc-passwd",
		"Ünïcode only":      "n-code-only",
		"":                  "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLogRecordsEvents(t *testing.T) {
	s := newSession(t)
	s.Log().Event("record_start", map[string]string{"rate": "16000"})
	if err := s.WriteTranscript("x"); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	if err := s.Log().Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(filepath.Join(s.Dir(), LogFile))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	var events []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec logRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", sc.Text(), err)
		}
		if rec.SessionID != s.ID.String() {
			t.Fatalf("unexpected session id %s", rec.SessionID)
		}
		events = append(events, rec.Event)
	}
	if len(events) != 2 || events[0] != "record_start" || events[1] != "transcribed" {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestFromFileUsesSiblingTranscript(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "memo.mp3")
	if err := os.WriteFile(audio, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := FromFile(context.Background(), audio, fixedTime)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	defer s.Close()
	if s.AudioPath() != audio {
		t.Fatalf("audio path changed: %s", s.AudioPath())
	}
	if s.TranscriptPath() != filepath.Join(dir, "memo.txt") {
		t.Fatalf("unexpected transcript path %s", s.TranscriptPath())
	}
	if _, err := s.Rename("x"); err == nil {
		t.Fatalf("expected rename refusal for file sessions")
	}
}
