package combo

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCombination = errors.New("invalid combination")
	ErrInvalidModifier    = errors.New("invalid modifiers")
	ErrInvalidKey         = errors.New("invalid key")
	ErrInvalidButton      = errors.New("invalid button")
)

const (
	vk0   VKey = 0x30
	vkA   VKey = 0x41
	vkF1  VKey = 0x70
	vkF10 VKey = 0x79
	vkF11 VKey = 0x7A
	vkF12 VKey = 0x7B
)

var modifierByToken = map[string]Modifier{
	"C": ModControl,
	"M": ModAlt,
	"S": ModShift,
	"W": ModWin,
}

type buttonTarget struct {
	button Button
	extra  uint8
}

var buttonByName = map[string]buttonTarget{
	"Left":       {ButtonLeft, 0},
	"Right":      {ButtonRight, 0},
	"Middle":     {ButtonMiddle, 0},
	"WheelUp":    {ButtonWheelVertical, 0},
	"WheelDown":  {ButtonWheelVertical, 1},
	"WheelRight": {ButtonWheelHorizontal, 0},
	"WheelLeft":  {ButtonWheelHorizontal, 1},
	"Side1":      {ButtonSide, 0},
	"Side2":      {ButtonSide, 1},
}

// Parse compiles a spec like "C-M-WheelUp" or "S-F11".
// The last '-' segment is always the target; every preceding segment must be
// a modifier token (C, M, S, W). Tokens are case-sensitive.
func Parse(spec string) (Combination, error) {
	if spec == "" {
		return Combination{}, fmt.Errorf("%w: %q", ErrInvalidCombination, spec)
	}
	parts := strings.Split(spec, "-")

	var mods Modifier
	for _, token := range parts[:len(parts)-1] {
		mod, ok := modifierByToken[token]
		if !ok {
			return Combination{}, fmt.Errorf("%w: %s", ErrInvalidModifier, spec)
		}
		mods |= mod
	}

	target := parts[len(parts)-1]
	if target == "" {
		return Combination{}, fmt.Errorf("%w: %s", ErrInvalidCombination, spec)
	}
	if key, ok, err := parseKey(target); err != nil {
		return Combination{}, fmt.Errorf("%w: %s", err, spec)
	} else if ok {
		return KeyCombination(mods, key), nil
	}

	t, ok := buttonByName[target]
	if !ok {
		return Combination{}, fmt.Errorf("%w: %s", ErrInvalidButton, spec)
	}
	return ButtonCombination(mods, t.button, t.extra), nil
}

// parseKey resolves digit, letter and function-key targets. ok is false when
// the token is not a key and should be tried as a button name.
func parseKey(token string) (VKey, bool, error) {
	switch {
	case len(token) == 1 && token[0] >= '0' && token[0] <= '9':
		return vk0 + VKey(token[0]-'0'), true, nil
	case len(token) == 1 && token[0] >= 'A' && token[0] <= 'Z':
		return vkA + VKey(token[0]-'A'), true, nil
	case len(token) == 2 && token[0] == 'F' && token[1] >= '1' && token[1] <= '9':
		return vkF1 + VKey(token[1]-'1'), true, nil
	case len(token) == 3 && token[:2] == "F1":
		switch token[2] {
		case '0':
			return vkF10, true, nil
		case '1':
			return vkF11, true, nil
		case '2':
			return vkF12, true, nil
		}
		return 0, false, ErrInvalidKey
	}
	return 0, false, nil
}
