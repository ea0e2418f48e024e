package ffmpeg

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("12.500000\n")
	if err != nil {
		t.Fatalf("ParseDuration: %v", err)
	}
	if d != 12500*time.Millisecond {
		t.Fatalf("expected 12.5s, got %v", d)
	}
	for _, bad := range []string{"", "N/A", "abc", "0", "-1"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
