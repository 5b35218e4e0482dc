package magnifier

import "math"

// deadZone is the fraction of each screen dimension, on both edges, in which
// the viewport origin saturates. Must stay strictly between 0 and 0.5.
const deadZone = 0.1

// pixelEpsilon absorbs float error before truncating to whole pixels so an
// exact value such as 479.99999999 still lands on 480.
const pixelEpsilon = 1e-9

// Point is a screen position in physical pixels.
type Point struct {
	X, Y int
}

// Rect is a screen rectangle; Right and Bottom are exclusive.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Transform is the magnified region of the real screen.
type Transform struct {
	Factor  float32
	OriginX int
	OriginY int
	Width   int
	Height  int
	// ScreenWidth and ScreenHeight are the full screen size the transform was
	// computed for.
	ScreenWidth  int
	ScreenHeight int
}

// Transform maps the cursor to the viewport for the current factor.
// The central (1-2*deadZone) band of the screen covers the whole pan range;
// cursor positions in the outer bands clamp to its ends. Origin and viewport
// size are truncated, so the source rectangle never leaves the screen.
func (s *State) Transform(cursor Point, width, height int) Transform {
	f := float64(s.factor)
	return Transform{
		Factor:       s.factor,
		OriginX:      panOrigin(float64(cursor.X), float64(width), f),
		OriginY:      panOrigin(float64(cursor.Y), float64(height), f),
		Width:        truncPixel(float64(width) / f),
		Height:       truncPixel(float64(height) / f),
		ScreenWidth:  width,
		ScreenHeight: height,
	}
}

func panOrigin(p, size, factor float64) int {
	maxOrigin := size * (1 - 1/factor)
	if maxOrigin <= 0 {
		return 0
	}
	mul := maxOrigin / ((1 - 2*deadZone) * size)
	sub := mul * deadZone * size
	origin := math.Min(math.Max(p*mul-sub, 0), maxOrigin)
	return truncPixel(origin)
}

func truncPixel(v float64) int {
	return int(math.Floor(v + pixelEpsilon))
}

// Source is the region of the real screen being shown.
func (t Transform) Source() Rect {
	return Rect{
		Left:   t.OriginX,
		Top:    t.OriginY,
		Right:  t.OriginX + t.Width,
		Bottom: t.OriginY + t.Height,
	}
}

// Dest is the full screen the source is stretched onto.
func (t Transform) Dest() Rect {
	return Rect{Right: t.ScreenWidth, Bottom: t.ScreenHeight}
}
