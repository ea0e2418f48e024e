//go:build !whispercpp

package asr

import (
	"errors"

	"voicepipe/internal/logging"
)

// ErrWhisperCPPUnavailable is returned when the binary was built without the
// whispercpp tag.
var ErrWhisperCPPUnavailable = errors.New("whispercpp engine not compiled in (build with -tags whispercpp, or use engine = \"server\")")

// NewWhisperCPP reports that the in-process engine is unavailable.
func NewWhisperCPP(modelPath string, p Params, log *logging.Logger) (Engine, error) {
	return nil, ErrWhisperCPPUnavailable
}
