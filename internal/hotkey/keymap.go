// Package hotkey listens for global key presses while a session records and
// turns them into menu choices.
package hotkey

import (
	hook "github.com/robotn/gohook"

	"voicepipe/internal/session"
)

// Mode selects which keys the listener reacts to.
type Mode int

const (
	// ModeDefault maps digits 1-5 to menu actions.
	ModeDefault Mode = iota
	// ModeQuick only reacts to Escape.
	ModeQuick
)

// libuiohook virtual key codes. They follow key position, not layout.
const (
	vcEscape = 0x0001
	vc1      = 0x0002
	vc5      = 0x0006
	vcKP1    = 0x004F
	vcKP2    = 0x0050
	vcKP3    = 0x0051
	vcKP4    = 0x004B
	vcKP5    = 0x004C
)

var keypad = map[uint16]session.Action{
	vcKP1: session.ActionDisplay,
	vcKP2: session.ActionPasteOpenTab,
	vcKP3: session.ActionPasteNewTab,
	vcKP4: session.ActionCleanup,
	vcKP5: session.ActionDiscard,
}

// Typed characters, including the unshifted AZERTY top row.
var chars = map[rune]session.Action{
	'1': session.ActionDisplay, '&': session.ActionDisplay,
	'2': session.ActionPasteOpenTab, 'é': session.ActionPasteOpenTab,
	'3': session.ActionPasteNewTab, '"': session.ActionPasteNewTab,
	'4': session.ActionCleanup, '\'': session.ActionCleanup,
	'5': session.ActionDiscard, '(': session.ActionDiscard,
}

// Decision is what the listener should do with one key event.
type Decision struct {
	Action session.Action
	Stop   bool
}

// Classify maps a hook event to a decision. Events that mean nothing in mode
// return the zero Decision.
func Classify(mode Mode, ev hook.Event) Decision {
	switch ev.Kind {
	case hook.KeyHold:
		if mode == ModeQuick {
			if ev.Keycode == vcEscape {
				return Decision{Stop: true}
			}
			return Decision{}
		}
		if ev.Keycode >= vc1 && ev.Keycode <= vc5 {
			return Decision{Action: session.Action(ev.Keycode - vc1 + 1), Stop: true}
		}
		if a, ok := keypad[ev.Keycode]; ok {
			return Decision{Action: a, Stop: true}
		}
	case hook.KeyDown:
		if mode == ModeQuick {
			if ev.Keychar == 0x1b {
				return Decision{Stop: true}
			}
			return Decision{}
		}
		if a, ok := chars[ev.Keychar]; ok {
			return Decision{Action: a, Stop: true}
		}
	}
	return Decision{}
}
