package desktop

import (
	"context"
	"fmt"
	"image"
	_ "image/png" // template images
	"time"
)

// maxChannelDiff is the per-channel tolerance (0-255) for a matching pixel.
const maxChannelDiff = 24

// Locate captures the screen repeatedly until tmpl is found or timeout
// elapses. It returns the center of the match.
func Locate(ctx context.Context, capture func() (image.Image, error), tmpl image.Image, timeout, interval time.Duration) (image.Point, error) {
	deadline := time.Now().Add(timeout)
	for {
		screen, err := capture()
		if err != nil {
			return image.Point{}, err
		}
		if pt, ok := Match(screen, tmpl); ok {
			b := tmpl.Bounds()
			return image.Pt(pt.X+b.Dx()/2, pt.Y+b.Dy()/2), nil
		}
		if time.Now().Add(interval).After(deadline) {
			return image.Point{}, fmt.Errorf("%w: input region not visible after %v", ErrTargetNotFound, timeout)
		}
		select {
		case <-ctx.Done():
			return image.Point{}, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Match finds the top-left corner of tmpl inside screen. A sparse set of
// probe pixels rejects most offsets before the full comparison.
func Match(screen, tmpl image.Image) (image.Point, bool) {
	sb, tb := screen.Bounds(), tmpl.Bounds()
	tw, th := tb.Dx(), tb.Dy()
	if tw == 0 || th == 0 || tw > sb.Dx() || th > sb.Dy() {
		return image.Point{}, false
	}
	probes := probePoints(tw, th)
	for y := sb.Min.Y; y <= sb.Max.Y-th; y++ {
		for x := sb.Min.X; x <= sb.Max.X-tw; x++ {
			if !matchAt(screen, tmpl, x, y, probes) {
				continue
			}
			if matchAt(screen, tmpl, x, y, nil) {
				return image.Pt(x, y), true
			}
		}
	}
	return image.Point{}, false
}

func probePoints(w, h int) []image.Point {
	const grid = 4
	pts := make([]image.Point, 0, grid*grid)
	for i := 0; i < grid; i++ {
		for j := 0; j < grid; j++ {
			pts = append(pts, image.Pt(j*(w-1)/(grid-1), i*(h-1)/(grid-1)))
		}
	}
	return pts
}

// matchAt compares tmpl at screen offset (x, y). A nil probe list compares
// every pixel.
func matchAt(screen, tmpl image.Image, x, y int, probes []image.Point) bool {
	tb := tmpl.Bounds()
	if probes != nil {
		for _, p := range probes {
			if !pixelClose(screen, tmpl, x+p.X, y+p.Y, tb.Min.X+p.X, tb.Min.Y+p.Y) {
				return false
			}
		}
		return true
	}
	for ty := 0; ty < tb.Dy(); ty++ {
		for tx := 0; tx < tb.Dx(); tx++ {
			if !pixelClose(screen, tmpl, x+tx, y+ty, tb.Min.X+tx, tb.Min.Y+ty) {
				return false
			}
		}
	}
	return true
}

func pixelClose(screen, tmpl image.Image, sx, sy, tx, ty int) bool {
	r1, g1, b1, _ := screen.At(sx, sy).RGBA()
	r2, g2, b2, _ := tmpl.At(tx, ty).RGBA()
	return diff(r1, r2) <= maxChannelDiff && diff(g1, g2) <= maxChannelDiff && diff(b1, b2) <= maxChannelDiff
}

func diff(a, b uint32) uint32 {
	a, b = a>>8, b>>8
	if a > b {
		return a - b
	}
	return b - a
}
