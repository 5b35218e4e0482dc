//go:build windows

package magnification

import (
	"testing"

	"github.com/waneon/windows-magnifier/internal/magnifier"
)

func TestToRect(t *testing.T) {
	got := toRect(magnifier.Rect{Left: 720, Top: 405, Right: 1200, Bottom: 675})
	if got.Left != 720 || got.Top != 405 || got.Right != 1200 || got.Bottom != 675 {
		t.Fatalf("toRect = %+v", got)
	}
}

func TestClosedMagnifierRejectsTransforms(t *testing.T) {
	m := &Magnifier{closed: true}
	if err := m.Apply(2, 0, 0); err == nil {
		t.Fatal("Apply on closed magnifier returned nil error")
	}
	if err := m.ApplyInputTransform(magnifier.Rect{}, magnifier.Rect{}); err == nil {
		t.Fatal("ApplyInputTransform on closed magnifier returned nil error")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close error = %v", err)
	}
}
