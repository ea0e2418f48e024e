// Package desktop drives the local GUI: window focus, browser tabs, locating
// the chat input on screen and pasting into it.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/go-vgo/robotgo"

	"voicepipe/internal/clipboard"
	"voicepipe/internal/logging"
)

// ErrTargetNotFound is returned when a window or the input region cannot be
// found.
var ErrTargetNotFound = errors.New("target not found on screen")

// Desktop is the real GUI backend.
type Desktop struct {
	inputTemplate string
	log           *logging.Logger
	capture       func() (image.Image, error)
}

// New returns a desktop backend. inputTemplate is a PNG of the chat input
// field; an empty path disables locating it.
func New(inputTemplate string, debug bool) *Desktop {
	return &Desktop{
		inputTemplate: inputTemplate,
		log:           logging.New(logging.CategoryDesktop, debug),
		capture:       captureScreen,
	}
}

// Copy replaces the clipboard content.
func (d *Desktop) Copy(text string) error {
	return clipboard.Copy(text)
}

// Paste pastes text into the focused field.
func (d *Desktop) Paste(text string) error {
	return clipboard.Paste(text)
}

// PressEnter submits the focused field.
func (d *Desktop) PressEnter() error {
	return clipboard.PressEnter()
}

// FocusWindow raises the first window whose title matches.
func (d *Desktop) FocusWindow(title string) error {
	if title == "" {
		return fmt.Errorf("%w: empty window title", ErrTargetNotFound)
	}
	if err := robotgo.ActiveName(title); err != nil {
		return fmt.Errorf("%w: window %q: %v", ErrTargetNotFound, title, err)
	}
	d.log.Debugf("focused window %q", title)
	return nil
}

// OpenURL opens url in a new tab of the default browser.
func (d *Desktop) OpenURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("opening %s: %w", url, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// FocusInput looks for the input template on screen until timeout and clicks
// its center.
func (d *Desktop) FocusInput(ctx context.Context, timeout time.Duration) error {
	if d.inputTemplate == "" {
		return fmt.Errorf("%w: no input template configured", ErrTargetNotFound)
	}
	tmpl, err := loadPNG(d.inputTemplate)
	if err != nil {
		return err
	}
	pt, err := Locate(ctx, d.capture, tmpl, timeout, 250*time.Millisecond)
	if err != nil {
		return err
	}
	d.log.Debugf("input region at %d,%d", pt.X, pt.Y)
	robotgo.Move(pt.X, pt.Y)
	robotgo.Click()
	return nil
}

func captureScreen() (image.Image, error) {
	bit := robotgo.CaptureScreen()
	if bit == nil {
		return nil, errors.New("screen capture failed")
	}
	defer robotgo.FreeBitmap(bit)
	img := robotgo.ToImage(bit)
	if img == nil {
		return nil, errors.New("screen capture failed")
	}
	return img, nil
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input template: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("input template %s: %w", path, err)
	}
	return img, nil
}
