package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"voicepipe/internal/logging"
)

var log = logging.New("ffmpeg", false)

// SetDebug toggles printing of the executed ffmpeg/ffprobe commands.
func SetDebug(on bool) {
	log = logging.New("ffmpeg", on)
}

// ToWav converts any input ffmpeg understands into 16-bit PCM WAV at the given
// rate and channel count.
func ToWav(ctx context.Context, inPath, outPath string, rate, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	if rate <= 0 {
		rate = 16000
	}
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", inPath,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(rate),
		"-c:a", "pcm_s16le",
		outPath,
	}
	log.Debugf("executing: ffmpeg %s", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %v\n%s", err, stderr.String())
	}
	return nil
}

// ProbeDuration asks ffprobe for the container duration.
func ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	log.Debugf("executing: ffprobe %s", strings.Join(args, " "))
	out, err := exec.CommandContext(ctx, "ffprobe", args...).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return ParseDuration(string(out))
}

// ParseDuration parses ffprobe's seconds output ("12.345000").
func ParseDuration(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ffprobe duration %q: %w", s, err)
	}
	if secs <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Available reports whether the named binary is on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
