package desktop

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func screenWithPatch(px, py int) (*image.RGBA, *image.RGBA) {
	screen := solid(120, 80, color.RGBA{255, 255, 255, 255})
	tmpl := image.NewRGBA(image.Rect(0, 0, 10, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			c := color.RGBA{uint8(20 * x), uint8(40 * y), 90, 255}
			tmpl.SetRGBA(x, y, c)
			screen.SetRGBA(px+x, py+y, c)
		}
	}
	return screen, tmpl
}

func TestMatchFindsPatch(t *testing.T) {
	screen, tmpl := screenWithPatch(37, 51)
	pt, ok := Match(screen, tmpl)
	if !ok {
		t.Fatalf("expected a match")
	}
	if pt != image.Pt(37, 51) {
		t.Fatalf("expected (37,51), got %v", pt)
	}
}

func TestMatchRejectsMissingPatch(t *testing.T) {
	_, tmpl := screenWithPatch(0, 0)
	screen := solid(120, 80, color.RGBA{255, 255, 255, 255})
	if _, ok := Match(screen, tmpl); ok {
		t.Fatalf("unexpected match")
	}
	if _, ok := Match(solid(4, 4, color.RGBA{}), tmpl); ok {
		t.Fatalf("template larger than screen must not match")
	}
}

func TestLocateReturnsCenter(t *testing.T) {
	screen, tmpl := screenWithPatch(10, 20)
	capture := func() (image.Image, error) { return screen, nil }
	pt, err := Locate(context.Background(), capture, tmpl, time.Second, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if pt != image.Pt(15, 23) {
		t.Fatalf("expected center (15,23), got %v", pt)
	}
}

func TestLocateTimesOut(t *testing.T) {
	_, tmpl := screenWithPatch(0, 0)
	blank := solid(50, 50, color.RGBA{255, 255, 255, 255})
	calls := 0
	capture := func() (image.Image, error) {
		calls++
		return blank, nil
	}
	start := time.Now()
	_, err := Locate(context.Background(), capture, tmpl, 60*time.Millisecond, 20*time.Millisecond)
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
	if calls < 2 {
		t.Fatalf("expected several captures, got %d", calls)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("locate overran its timeout")
	}
}
