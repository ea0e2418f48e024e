//go:build linux

package clipboard

import (
	"time"

	"github.com/micmonay/keybd_event"
)

// uinput registers the new device asynchronously.
const settleDelay = 2 * time.Second

func setPasteModifier(k *keybd_event.KeyBonding) {
	k.HasCTRL(true)
}
