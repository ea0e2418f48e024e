// Package clipboard copies text and sends the paste and Enter keystrokes to
// the focused window.
package clipboard

import (
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

var (
	kbOnce sync.Once
	kb     keybd_event.KeyBonding
	kbErr  error
)

func keyboard() (*keybd_event.KeyBonding, error) {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
		if kbErr == nil {
			// The virtual device needs a moment before its first event.
			time.Sleep(settleDelay)
		}
	})
	if kbErr != nil {
		return nil, kbErr
	}
	return &kb, nil
}

// Copy replaces the clipboard content.
func Copy(text string) error {
	return clipboard.WriteAll(text)
}

// Read returns the current clipboard content.
func Read() (string, error) {
	return clipboard.ReadAll()
}

// Paste puts text on the clipboard and sends the platform paste shortcut.
// The previous clipboard content is left replaced.
func Paste(text string) error {
	if err := Copy(text); err != nil {
		return err
	}
	time.Sleep(80 * time.Millisecond)
	return sendPasteChord()
}

// PasteRestore pastes text and then restores what was on the clipboard.
func PasteRestore(text string) error {
	orig, _ := Read()
	if err := Paste(text); err != nil {
		return err
	}
	time.Sleep(120 * time.Millisecond)
	return Copy(orig)
}

// PressEnter taps the Enter key.
func PressEnter() error {
	k, err := keyboard()
	if err != nil {
		return err
	}
	k.Clear()
	k.SetKeys(keybd_event.VK_ENTER)
	return k.Launching()
}

func sendPasteChord() error {
	k, err := keyboard()
	if err != nil {
		return err
	}
	k.Clear()
	setPasteModifier(k)
	k.SetKeys(keybd_event.VK_V)
	return k.Launching()
}
