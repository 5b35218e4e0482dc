package combo

import (
	"strconv"
	"strings"
)

// Modifier represents a Win32 hotkey modifier bitmask.
type Modifier uint32

// VKey represents a Win32 virtual-key code.
type VKey uint32

const (
	ModAlt      Modifier = 0x0001
	ModControl  Modifier = 0x0002
	ModShift    Modifier = 0x0004
	ModWin      Modifier = 0x0008
	ModNoRepeat Modifier = 0x4000
)

// Kind tells which variant a Combination holds.
type Kind uint8

const (
	KindKey Kind = iota + 1
	KindButton
)

// Button identifies a pointer button or wheel axis.
type Button uint8

const (
	ButtonLeft Button = iota + 1
	ButtonRight
	ButtonMiddle
	ButtonWheelVertical
	ButtonWheelHorizontal
	// ButtonSide is an X button; Extra selects side button 1 or 2.
	ButtonSide
)

// Combination is the canonical descriptor of a shortcut trigger.
// It is comparable: two combinations address the same input iff they are ==.
// Fields that do not belong to the active Kind are always zero.
type Combination struct {
	Kind      Kind
	Modifiers Modifier
	Key       VKey
	Button    Button
	// Extra distinguishes direction or side: wheel down/left and side 2 are 1.
	Extra uint8
}

// KeyCombination builds a key-variant combination. The no-repeat flag is
// always attached.
func KeyCombination(mods Modifier, key VKey) Combination {
	return Combination{Kind: KindKey, Modifiers: mods | ModNoRepeat, Key: key}
}

// ButtonCombination builds a button-variant combination. The no-repeat flag
// is always attached so pointer-synthesized values compare equal to parsed ones.
func ButtonCombination(mods Modifier, button Button, extra uint8) Combination {
	return Combination{Kind: KindButton, Modifiers: mods | ModNoRepeat, Button: button, Extra: extra}
}

// IsKey reports whether c is bound through OS hotkey registration.
func (c Combination) IsKey() bool { return c.Kind == KindKey }

// String renders c in the MOD-...-TARGET form accepted by Parse.
func (c Combination) String() string {
	var parts []string
	for _, m := range modifierOrder {
		if c.Modifiers&m.mod != 0 {
			parts = append(parts, m.token)
		}
	}
	switch c.Kind {
	case KindKey:
		parts = append(parts, keyName(c.Key))
	case KindButton:
		parts = append(parts, buttonName(c.Button, c.Extra))
	default:
		parts = append(parts, "?")
	}
	return strings.Join(parts, "-")
}

var modifierOrder = []struct {
	token string
	mod   Modifier
}{
	{"C", ModControl},
	{"M", ModAlt},
	{"S", ModShift},
	{"W", ModWin},
}

func keyName(key VKey) string {
	switch {
	case key >= vk0 && key <= vk0+9, key >= vkA && key <= vkA+25:
		return string(rune(key))
	case key >= vkF1 && key <= vkF12:
		return "F" + strconv.Itoa(int(key-vkF1)+1)
	}
	return "0x" + strings.ToUpper(strconv.FormatUint(uint64(key), 16))
}

func buttonName(b Button, extra uint8) string {
	for name, t := range buttonByName {
		if t.button == b && t.extra == extra {
			return name
		}
	}
	return "?"
}
