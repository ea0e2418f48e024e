// Package dispatch carries out the action chosen for a transcript.
package dispatch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"voicepipe/internal/llm"
	"voicepipe/internal/logging"
	"voicepipe/internal/output"
	"voicepipe/internal/session"
)

// Desktop is the GUI surface the dispatcher drives.
type Desktop interface {
	Copy(text string) error
	Paste(text string) error
	PressEnter() error
	FocusWindow(title string) error
	OpenURL(url string) error
	FocusInput(ctx context.Context, timeout time.Duration) error
}

// Cleaner re-punctuates text and suggests a name for it.
type Cleaner interface {
	Cleanup(ctx context.Context, text string) (llm.Cleaned, error)
}

// Session is the part of a session the actions touch.
type Session interface {
	Rename(name string) (string, error)
	Discard() error
	Log() *session.Log
}

// Options configure the browser and quick-mode actions.
type Options struct {
	ChatURL       string
	ChatWindow    string
	LocateTimeout time.Duration
	NewTabWait    time.Duration
	QuickPrefix   string
	TargetWindow  string
}

// Dispatcher executes one action per transcript.
type Dispatcher struct {
	desktop Desktop
	cleaner Cleaner
	opts    Options
	out     *output.Formatter
	log     *logging.Logger
	sleep   func(ctx context.Context, d time.Duration)
}

// New returns a dispatcher. cleaner may be nil when no model is configured.
func New(desktop Desktop, cleaner Cleaner, opts Options, out *output.Formatter, debug bool) *Dispatcher {
	return &Dispatcher{
		desktop: desktop,
		cleaner: cleaner,
		opts:    opts,
		out:     out,
		log:     logging.New(logging.CategoryDispatch, debug),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Dispatch runs action for text. Failures of the desktop and language-model
// actions are reported and do not fail the run; it only returns an error for
// an invalid action.
func (d *Dispatcher) Dispatch(ctx context.Context, s Session, action session.Action, text string) error {
	if !action.Valid() {
		return fmt.Errorf("invalid action %d", int(action))
	}
	d.log.Debugf("dispatching %s", action)
	if s != nil {
		s.Log().Event("action", map[string]string{"action": action.String()})
	}

	switch action {
	case session.ActionDisplay:
		fmt.Fprintf(d.out.Writer(), "\n%s\n", text)
	case session.ActionPasteOpenTab:
		if err := d.desktop.FocusWindow(d.opts.ChatWindow); err != nil {
			d.out.Warning(fmt.Sprintf("could not focus %q: %v", d.opts.ChatWindow, err))
		}
		d.pasteIntoChat(ctx, text)
	case session.ActionPasteNewTab:
		if err := d.desktop.OpenURL(d.opts.ChatURL); err != nil {
			d.out.Warning(fmt.Sprintf("could not open %s: %v", d.opts.ChatURL, err))
		}
		d.sleep(ctx, d.opts.NewTabWait)
		d.pasteIntoChat(ctx, text)
	case session.ActionCleanup:
		d.cleanup(ctx, s, text)
	case session.ActionDiscard:
		if s == nil {
			return nil
		}
		if err := s.Discard(); err != nil {
			d.out.Warning(fmt.Sprintf("discard: %v", err))
			return nil
		}
		d.out.Success("Audio and transcript deleted.")
	}
	return nil
}

func (d *Dispatcher) pasteIntoChat(ctx context.Context, text string) {
	if err := d.desktop.FocusInput(ctx, d.opts.LocateTimeout); err != nil {
		d.out.Warning(fmt.Sprintf("chat input not found, pasting anyway: %v", err))
	}
	if err := d.desktop.Paste(text); err != nil {
		d.out.Error(fmt.Sprintf("paste failed: %v", err))
		return
	}
	d.out.Success("Pasted into chat.")
}

func (d *Dispatcher) cleanup(ctx context.Context, s Session, text string) {
	if d.cleaner == nil {
		d.out.Warning("no language model configured")
		return
	}
	d.out.Info("Sending text to the local model...")
	cleaned, err := d.cleaner.Cleanup(ctx, text)
	if err != nil {
		d.out.Error(fmt.Sprintf("cleanup failed: %v", err))
		return
	}
	if err := d.desktop.Copy(cleaned.PunctuatedText); err != nil {
		d.out.Warning(fmt.Sprintf("clipboard: %v", err))
	}
	folder := ""
	if s != nil && cleaned.SuggestedFilename != "" {
		dir, err := s.Rename(cleaned.SuggestedFilename)
		if err != nil {
			d.out.Warning(fmt.Sprintf("rename: %v", err))
		} else {
			folder = dir
		}
	}
	d.out.Cleaned(cleaned.PunctuatedText, folder, cleaned.Elapsed)
}

// Quick optionally refocuses the target window, pastes the prefixed text at
// the cursor and presses Enter.
func (d *Dispatcher) Quick(ctx context.Context, s Session, text string) error {
	if s != nil {
		s.Log().Event("action", map[string]string{"action": "quick-paste"})
	}
	if d.opts.TargetWindow != "" {
		if err := d.desktop.FocusWindow(d.opts.TargetWindow); err != nil {
			d.out.Warning(fmt.Sprintf("could not focus %q: %v", d.opts.TargetWindow, err))
		} else {
			d.sleep(ctx, 200*time.Millisecond)
		}
	}
	if err := d.desktop.Paste(d.opts.QuickPrefix + text); err != nil {
		return fmt.Errorf("paste failed: %w", err)
	}
	if err := d.desktop.PressEnter(); err != nil {
		return fmt.Errorf("enter failed: %w", err)
	}
	return nil
}

// Prompt asks for an action on in until a valid one is entered. End of input
// selects display.
func (d *Dispatcher) Prompt(in io.Reader) session.Action {
	sc := bufio.NewScanner(in)
	for {
		d.out.Menu()
		d.out.Prompt()
		if !sc.Scan() {
			if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
				d.log.Warnf("reading choice: %v", err)
			}
			fmt.Fprintln(d.out.Writer())
			return session.ActionDisplay
		}
		if a, ok := ParseAction(sc.Text()); ok {
			return a
		}
		d.out.Warning(fmt.Sprintf("invalid choice %q, enter a number from 1 to 5", strings.TrimSpace(sc.Text())))
	}
}

// ParseAction parses "1".."5".
func ParseAction(s string) (session.Action, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return session.ActionNone, false
	}
	a := session.Action(n)
	return a, a.Valid()
}
