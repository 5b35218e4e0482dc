package hotkeys

import (
	"github.com/waneon/windows-magnifier/internal/combo"
	"github.com/waneon/windows-magnifier/internal/dispatch"
)

// Low-level mouse hook messages (winuser.h).
const (
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	wmXButtonDown = 0x020B
	wmXButtonUp   = 0x020C
	wmMouseHWheel = 0x020E
)

// Virtual keys sampled for the modifier state of pointer events.
const (
	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12
	vkLWin    = 0x5B
	vkRWin    = 0x5C
)

const (
	// wheelNegative is the sign bit of the wheel delta in the high word of
	// mouseData: down for the vertical wheel, left for the horizontal one.
	wheelNegative = 0x80000000
	// xButton1 is XBUTTON1 in the high word of mouseData. It maps to Side2.
	xButton1 = 0x00010000
)

// translatePointer converts a low-level mouse hook message into a pointer
// event. ok is false for messages the dispatcher does not care about.
func translatePointer(msg uint32, mouseData uint32) (ev dispatch.PointerEvent, ok bool) {
	switch msg {
	case wmMouseMove:
		return dispatch.PointerEvent{Kind: dispatch.PointerMove}, true
	case wmLButtonDown:
		return buttonEvent(dispatch.PointerDown, combo.ButtonLeft, 0), true
	case wmLButtonUp:
		return buttonEvent(dispatch.PointerUp, combo.ButtonLeft, 0), true
	case wmRButtonDown:
		return buttonEvent(dispatch.PointerDown, combo.ButtonRight, 0), true
	case wmRButtonUp:
		return buttonEvent(dispatch.PointerUp, combo.ButtonRight, 0), true
	case wmMButtonDown:
		return buttonEvent(dispatch.PointerDown, combo.ButtonMiddle, 0), true
	case wmMButtonUp:
		return buttonEvent(dispatch.PointerUp, combo.ButtonMiddle, 0), true
	case wmMouseWheel:
		return buttonEvent(dispatch.PointerWheel, combo.ButtonWheelVertical, flag(mouseData&wheelNegative != 0)), true
	case wmMouseHWheel:
		return buttonEvent(dispatch.PointerWheel, combo.ButtonWheelHorizontal, flag(mouseData&wheelNegative != 0)), true
	case wmXButtonDown:
		return buttonEvent(dispatch.PointerDown, combo.ButtonSide, flag(mouseData&xButton1 != 0)), true
	case wmXButtonUp:
		return buttonEvent(dispatch.PointerUp, combo.ButtonSide, flag(mouseData&xButton1 != 0)), true
	}
	return dispatch.PointerEvent{}, false
}

func buttonEvent(kind dispatch.PointerKind, button combo.Button, extra uint8) dispatch.PointerEvent {
	return dispatch.PointerEvent{Kind: kind, Button: button, Extra: extra}
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// modifiersFromKeys builds the modifier set from a key-down probe.
func modifiersFromKeys(down func(vk int) bool) combo.Modifier {
	var mods combo.Modifier
	if down(vkControl) {
		mods |= combo.ModControl
	}
	if down(vkMenu) {
		mods |= combo.ModAlt
	}
	if down(vkShift) {
		mods |= combo.ModShift
	}
	if down(vkLWin) || down(vkRWin) {
		mods |= combo.ModWin
	}
	return mods
}
