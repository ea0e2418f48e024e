package dispatch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voicepipe/internal/llm"
	"voicepipe/internal/output"
	"voicepipe/internal/session"
)

type fakeDesktop struct {
	calls     []string
	pasted    []string
	clipboard string
	locateErr error
	focusErr  error
}

func (f *fakeDesktop) Copy(text string) error {
	f.calls = append(f.calls, "copy")
	f.clipboard = text
	return nil
}

func (f *fakeDesktop) Paste(text string) error {
	f.calls = append(f.calls, "paste")
	f.pasted = append(f.pasted, text)
	f.clipboard = text
	return nil
}

func (f *fakeDesktop) PressEnter() error {
	f.calls = append(f.calls, "enter")
	return nil
}

func (f *fakeDesktop) FocusWindow(title string) error {
	f.calls = append(f.calls, "focus:"+title)
	return f.focusErr
}

func (f *fakeDesktop) OpenURL(url string) error {
	f.calls = append(f.calls, "open:"+url)
	return nil
}

func (f *fakeDesktop) FocusInput(ctx context.Context, timeout time.Duration) error {
	f.calls = append(f.calls, "locate")
	return f.locateErr
}

type fakeCleaner struct {
	out llm.Cleaned
	err error
}

func (f fakeCleaner) Cleanup(ctx context.Context, text string) (llm.Cleaned, error) {
	return f.out, f.err
}

func newDispatcher(desk *fakeDesktop, cleaner Cleaner) (*Dispatcher, *bytes.Buffer) {
	var buf bytes.Buffer
	d := New(desk, cleaner, Options{
		ChatURL:     "https://chat.example/",
		ChatWindow:  "Chat",
		QuickPrefix: "(voice) ",
		NewTabWait:  time.Hour,
	}, output.NewFormatter(&buf), false)
	d.sleep = func(context.Context, time.Duration) {}
	return d, &buf
}

func newSession(t *testing.T) *session.Session {
	t.Helper()
	root := t.TempDir()
	s, err := session.New(context.Background(), root, "{{.Hour}}-{{.Minute}}-{{.Second}}", time.Date(2026, 3, 1, 9, 15, 30, 0, time.UTC))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDisplayPrintsText(t *testing.T) {
	desk := &fakeDesktop{}
	d, buf := newDispatcher(desk, nil)
	if err := d.Dispatch(context.Background(), newSession(t), session.ActionDisplay, "hello world"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(buf.String(), "hello world") {
		t.Fatalf("text not displayed: %q", buf.String())
	}
	if len(desk.calls) != 0 {
		t.Fatalf("display must not touch the desktop: %v", desk.calls)
	}
}

func TestPasteOpenTabContinuesWhenInputNotFound(t *testing.T) {
	desk := &fakeDesktop{locateErr: errors.New("not visible")}
	d, buf := newDispatcher(desk, nil)
	if err := d.Dispatch(context.Background(), newSession(t), session.ActionPasteOpenTab, "hi"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	want := []string{"focus:Chat", "locate", "paste"}
	if strings.Join(desk.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", desk.calls, want)
	}
	if !strings.Contains(buf.String(), "not found") {
		t.Fatalf("expected a warning, got %q", buf.String())
	}
}

func TestPasteNewTabOpensURL(t *testing.T) {
	desk := &fakeDesktop{}
	d, _ := newDispatcher(desk, nil)
	if err := d.Dispatch(context.Background(), newSession(t), session.ActionPasteNewTab, "hi"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	want := []string{"open:https://chat.example/", "locate", "paste"}
	if strings.Join(desk.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", desk.calls, want)
	}
}

func TestCleanupReplacesClipboardAndRenames(t *testing.T) {
	desk := &fakeDesktop{clipboard: "raw"}
	s := newSession(t)
	d, _ := newDispatcher(desk, fakeCleaner{out: llm.Cleaned{PunctuatedText: "Clean text.", SuggestedFilename: "Weekly Sync.txt"}})
	if err := d.Dispatch(context.Background(), s, session.ActionCleanup, "clean text"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if desk.clipboard != "Clean text." {
		t.Fatalf("clipboard = %q", desk.clipboard)
	}
	if filepath.Base(s.Dir()) != "09-15-30_weekly-sync" {
		t.Fatalf("session not renamed: %s", s.Dir())
	}
}

func TestCleanupFailureIsNotFatal(t *testing.T) {
	desk := &fakeDesktop{clipboard: "raw"}
	s := newSession(t)
	dir := s.Dir()
	d, buf := newDispatcher(desk, fakeCleaner{err: llm.ErrService})
	if err := d.Dispatch(context.Background(), s, session.ActionCleanup, "raw"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if desk.clipboard != "raw" || s.Dir() != dir {
		t.Fatalf("failed cleanup must leave clipboard and folder alone")
	}
	if !strings.Contains(buf.String(), "cleanup failed") {
		t.Fatalf("expected error message, got %q", buf.String())
	}
}

func TestDiscardRemovesFiles(t *testing.T) {
	s := newSession(t)
	if err := os.WriteFile(s.AudioPath(), []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	d, _ := newDispatcher(&fakeDesktop{}, nil)
	if err := d.Dispatch(context.Background(), s, session.ActionDiscard, "x"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	for _, p := range []string{s.AudioPath(), s.TranscriptPath()} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s should be gone", p)
		}
	}
}

func TestDispatchRejectsInvalidAction(t *testing.T) {
	d, _ := newDispatcher(&fakeDesktop{}, nil)
	if err := d.Dispatch(context.Background(), nil, session.Action(9), "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestQuickPastesPrefixedTextThenEnter(t *testing.T) {
	desk := &fakeDesktop{}
	d, _ := newDispatcher(desk, nil)
	d.opts.TargetWindow = "Terminal"
	if err := d.Quick(context.Background(), newSession(t), "run the tests"); err != nil {
		t.Fatalf("Quick: %v", err)
	}
	want := []string{"focus:Terminal", "paste", "enter"}
	if strings.Join(desk.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", desk.calls, want)
	}
	if desk.pasted[0] != "(voice) run the tests" {
		t.Fatalf("pasted %q", desk.pasted[0])
	}
}

func TestPromptReasksOnInvalidInput(t *testing.T) {
	d, buf := newDispatcher(&fakeDesktop{}, nil)
	got := d.Prompt(strings.NewReader("x\n9\n 4 \n"))
	if got != session.ActionCleanup {
		t.Fatalf("expected cleanup, got %v", got)
	}
	if strings.Count(buf.String(), "invalid choice") != 2 {
		t.Fatalf("expected two warnings, got %q", buf.String())
	}
}

func TestPromptEOFDisplays(t *testing.T) {
	d, _ := newDispatcher(&fakeDesktop{}, nil)
	if got := d.Prompt(strings.NewReader("")); got != session.ActionDisplay {
		t.Fatalf("expected display on EOF, got %v", got)
	}
}
