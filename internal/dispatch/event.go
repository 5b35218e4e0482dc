package dispatch

import (
	"github.com/waneon/windows-magnifier/internal/combo"
	"github.com/waneon/windows-magnifier/internal/shortcut"
)

// Event is one item on the dispatch queue. OS callbacks only translate native
// notifications into these variants.
type Event interface {
	event()
}

// HotkeyEvent triggers the shortcut at Index in the current table.
type HotkeyEvent struct {
	Index int
}

// PointerKind classifies a pointer notification.
type PointerKind uint8

const (
	PointerMove PointerKind = iota + 1
	PointerDown
	PointerUp
	// PointerWheel is a wheel notch; it behaves as a down transition.
	PointerWheel
)

// PointerEvent is a low-level pointer notification with the modifier state
// sampled when it was delivered.
type PointerEvent struct {
	Kind      PointerKind
	Button    combo.Button
	Extra     uint8
	Modifiers combo.Modifier
}

// RefreshEvent requests a transform recompute, e.g. after cursor movement.
type RefreshEvent struct{}

// ReloadEvent replaces the shortcut table.
type ReloadEvent struct {
	Table *shortcut.Table
}

func (HotkeyEvent) event()  {}
func (PointerEvent) event() {}
func (RefreshEvent) event() {}
func (ReloadEvent) event()  {}
