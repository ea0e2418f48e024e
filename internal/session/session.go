// Package session holds the state of one recording: its folder, its files,
// the cancellation token shared by the recorder and the key listener, and the
// one-shot slot through which the listener hands back the chosen action.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/google/uuid"
)

const (
	AudioFile      = "audio.wav"
	TranscriptFile = "transcript.txt"
	LogFile        = "session.jsonl"
)

// Action is a post-processing choice. The zero value means none was made.
type Action int

const (
	ActionNone Action = iota
	ActionDisplay
	ActionPasteOpenTab
	ActionPasteNewTab
	ActionCleanup
	ActionDiscard
)

func (a Action) Valid() bool {
	return a >= ActionDisplay && a <= ActionDiscard
}

func (a Action) String() string {
	switch a {
	case ActionDisplay:
		return "display"
	case ActionPasteOpenTab:
		return "paste-open-tab"
	case ActionPasteNewTab:
		return "paste-new-tab"
	case ActionCleanup:
		return "llm-cleanup"
	case ActionDiscard:
		return "discard"
	default:
		return "none"
	}
}

// FolderTemplateData holds the template variables available for folder naming.
type FolderTemplateData struct {
	Year   string
	Month  string
	Day    string
	Hour   string
	Minute string
	Second string
}

// Session is one recording and its artifacts.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	mu            sync.Mutex
	dir           string
	audioOverride string
	duration      time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	action        chan Action
	chooseOnce    sync.Once
	log           *Log
}

// New creates the session folder under root. The returned session's context
// is derived from parent and is cancelled by Stop or Choose.
func New(parent context.Context, root, folderTemplate string, now time.Time) (*Session, error) {
	name, err := RenderFolderName(folderTemplate, now)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return open(parent, dir, now)
}

// FromFile wraps an existing audio file. Transcript and log land next to it.
func FromFile(parent context.Context, audioPath string, now time.Time) (*Session, error) {
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, err
	}
	s, err := open(parent, filepath.Dir(abs), now)
	if err != nil {
		return nil, err
	}
	s.audioOverride = abs
	return s, nil
}

func open(parent context.Context, dir string, now time.Time) (*Session, error) {
	id := uuid.New()
	log, err := OpenLog(filepath.Join(dir, LogFile), id.String())
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:        id,
		StartedAt: now,
		dir:       dir,
		ctx:       ctx,
		cancel:    cancel,
		action:    make(chan Action, 1),
		log:       log,
	}, nil
}

// RenderFolderName executes the folder template for t.
func RenderFolderName(folderTemplate string, t time.Time) (string, error) {
	tmpl, err := template.New("folder").Parse(folderTemplate)
	if err != nil {
		return "", fmt.Errorf("invalid folder template: %w", err)
	}
	data := FolderTemplateData{
		Year:   t.Format("2006"),
		Month:  t.Format("01"),
		Day:    t.Format("02"),
		Hour:   t.Format("15"),
		Minute: t.Format("04"),
		Second: t.Format("05"),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing folder template: %w", err)
	}
	name := strings.Trim(buf.String(), "/")
	if name == "" {
		return "", errors.New("folder template rendered an empty name")
	}
	return name, nil
}

// Context is cancelled once recording should stop.
func (s *Session) Context() context.Context { return s.ctx }

// Stop requests the end of recording. Safe to call more than once.
func (s *Session) Stop() { s.cancel() }

// Choose records the action and stops the recording. Only the first call has
// any effect; it reports whether this call won.
func (s *Session) Choose(a Action) bool {
	won := false
	s.chooseOnce.Do(func() {
		s.action <- a
		won = true
	})
	s.Stop()
	return won
}

// Action returns the chosen action, or ActionNone when Choose was never
// called. It consumes the slot.
func (s *Session) Action() Action {
	select {
	case a := <-s.action:
		return a
	default:
		return ActionNone
	}
}

func (s *Session) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

func (s *Session) AudioPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audioOverride != "" {
		return s.audioOverride
	}
	return filepath.Join(s.dir, AudioFile)
}

func (s *Session) TranscriptPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audioOverride != "" {
		base := strings.TrimSuffix(filepath.Base(s.audioOverride), filepath.Ext(s.audioOverride))
		return filepath.Join(s.dir, base+".txt")
	}
	return filepath.Join(s.dir, TranscriptFile)
}

// SetDuration stores the measured recording length.
func (s *Session) SetDuration(d time.Duration) {
	s.mu.Lock()
	s.duration = d
	s.mu.Unlock()
}

// Duration is zero until the recording has been finalized.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Session) Log() *Log { return s.log }

// WriteTranscript writes text as the transcript in one call.
func (s *Session) WriteTranscript(text string) error {
	path := s.TranscriptPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing transcript: %w", err)
	}
	s.log.Event("transcribed", map[string]string{"path": path, "chars": fmt.Sprint(len(text))})
	return nil
}

// Discard removes the audio and transcript files. Missing files are fine.
func (s *Session) Discard() error {
	var errs []error
	for _, p := range []string{s.AudioPath(), s.TranscriptPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	s.log.Event("discarded", nil)
	return errors.Join(errs...)
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a suggested name into a safe folder suffix. Extensions are dropped.
func Slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if ext := filepath.Ext(name); ext != "" && len(ext) <= 5 {
		name = strings.TrimSuffix(name, ext)
	}
	slug := strings.Trim(slugUnsafe.ReplaceAllString(name, "-"), "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	return slug
}

// Rename appends the slug of name to the session folder. It returns the new
// folder path. An empty slug leaves the folder untouched.
func (s *Session) Rename(name string) (string, error) {
	slug := Slug(name)
	if slug == "" {
		return s.Dir(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audioOverride != "" {
		return s.dir, errors.New("sessions created from an input file are not renamed")
	}

	base := s.dir + "_" + slug
	target := base
	for i := 2; ; i++ {
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			break
		}
		target = fmt.Sprintf("%s-%d", base, i)
	}
	if err := s.log.Close(); err != nil {
		return s.dir, err
	}
	if err := os.Rename(s.dir, target); err != nil {
		s.log.reopen(filepath.Join(s.dir, LogFile))
		return s.dir, fmt.Errorf("renaming session folder: %w", err)
	}
	s.dir = target
	s.log.reopen(filepath.Join(target, LogFile))
	s.log.Event("renamed", map[string]string{"dir": target})
	return target, nil
}

// Close releases the session log.
func (s *Session) Close() error {
	s.cancel()
	return s.log.Close()
}
