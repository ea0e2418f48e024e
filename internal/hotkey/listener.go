package hotkey

import (
	"context"

	hook "github.com/robotn/gohook"

	"voicepipe/internal/logging"
	"voicepipe/internal/session"
)

// Target receives the listener's decisions. *session.Session implements it.
type Target interface {
	Choose(a session.Action) bool
	Stop()
}

// Source starts a global key event stream and returns a function that ends it.
type Source func() (<-chan hook.Event, func())

// GlobalSource is the system-wide keyboard hook.
func GlobalSource() (<-chan hook.Event, func()) {
	return hook.Start(), hook.End
}

// Listener waits for the stop key while the recorder runs.
type Listener struct {
	mode   Mode
	source Source
	log    *logging.Logger
}

// NewListener returns a listener in mode reading from source.
func NewListener(mode Mode, source Source, debug bool) *Listener {
	if source == nil {
		source = GlobalSource
	}
	return &Listener{mode: mode, source: source, log: logging.New(logging.CategoryHotkey, debug)}
}

// Run blocks until a qualifying key is pressed or ctx is cancelled by some
// other path. In default mode the key's action is chosen; in quick mode the
// session is only stopped.
func (l *Listener) Run(ctx context.Context, t Target) {
	events, end := l.source()
	defer end()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d := Classify(l.mode, ev)
			if !d.Stop {
				continue
			}
			if d.Action != session.ActionNone {
				if t.Choose(d.Action) {
					l.log.Debugf("key %q (code %d) chose %s", ev.Keychar, ev.Keycode, d.Action)
				}
			} else {
				l.log.Debugf("stop key pressed")
				t.Stop()
			}
			return
		}
	}
}
