//go:build !windows

package magnification

import "github.com/waneon/windows-magnifier/internal/magnifier"

// Magnifier is a stub on non-Windows platforms.
type Magnifier struct{}

// Open always returns ErrUnsupported.
func Open() (*Magnifier, error) { return nil, ErrUnsupported }

// Apply always returns ErrUnsupported.
func (m *Magnifier) Apply(_ float32, _, _ int) error { return ErrUnsupported }

// ApplyInputTransform always returns ErrUnsupported.
func (m *Magnifier) ApplyInputTransform(_, _ magnifier.Rect) error { return ErrUnsupported }

// CursorPos always returns ErrUnsupported.
func (m *Magnifier) CursorPos() (magnifier.Point, error) { return magnifier.Point{}, ErrUnsupported }

// Size always returns ErrUnsupported.
func (m *Magnifier) Size() (int, int, error) { return 0, 0, ErrUnsupported }

// Close is a no-op on non-Windows platforms.
func (m *Magnifier) Close() error { return nil }
