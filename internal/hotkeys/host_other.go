//go:build !windows

package hotkeys

import (
	"context"

	"github.com/waneon/windows-magnifier/internal/dispatch"
	"github.com/waneon/windows-magnifier/internal/shortcut"
)

// Host is a stub on non-Windows platforms. Events can be queued but there
// is no message loop to deliver them.
type Host struct {
	queue fifo
}

// NewHost creates a stub host.
func NewHost() *Host {
	return &Host{}
}

// Post queues ev; it is never delivered on this platform.
func (h *Host) Post(ev dispatch.Event) error {
	return h.queue.push(ev)
}

// Register always returns ErrUnsupported.
func (h *Host) Register(_ *shortcut.Table) error { return ErrUnsupported }

// Unregister is a no-op on non-Windows platforms.
func (h *Host) Unregister() error { return nil }

// Run always returns ErrUnsupported.
func (h *Host) Run(_ context.Context, _ StartFunc) error { return ErrUnsupported }
