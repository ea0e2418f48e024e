// Package notify shows desktop notifications and plays the recording cue.
package notify

import (
	"github.com/gen2brain/beeep"

	"voicepipe/internal/logging"
)

const title = "voicepipe"

// Notifier sends notifications when enabled.
type Notifier struct {
	enabled bool
	log     *logging.Logger
}

// New returns a notifier. A disabled notifier only logs at debug level.
func New(enabled, debug bool) *Notifier {
	return &Notifier{enabled: enabled, log: logging.New(logging.CategoryMain, debug)}
}

// Notify shows message as a desktop notification.
func (n *Notifier) Notify(message string) {
	if n == nil || !n.enabled {
		return
	}
	if err := beeep.Notify(title, message, ""); err != nil {
		n.log.Debugf("notification failed: %v", err)
	}
}

// Cue plays the short beep that marks the start of recording.
func Cue() error {
	return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
}
