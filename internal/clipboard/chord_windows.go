//go:build windows

package clipboard

import (
	"time"

	"github.com/micmonay/keybd_event"
)

const settleDelay = 0 * time.Millisecond

func setPasteModifier(k *keybd_event.KeyBonding) {
	k.HasCTRL(true)
}
