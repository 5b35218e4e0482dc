// Package magnification binds the Windows Magnification API and the screen
// queries the dispatcher needs.
package magnification

import (
	"errors"

	"github.com/waneon/windows-magnifier/internal/dispatch"
)

// ErrUnsupported is returned on platforms without the Magnification API.
var ErrUnsupported = errors.New("magnification is not supported on this platform")

var (
	_ dispatch.Magnifier = (*Magnifier)(nil)
	_ dispatch.Screen    = (*Magnifier)(nil)
)
