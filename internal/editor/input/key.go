package input

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Modifier is a bitset of held modifier keys.
type Modifier uint8

const (
	ModNone Modifier = 0

	ModShift Modifier = 1 << iota
	ModControl
	ModAlt
)

func (m Modifier) Has(mod Modifier) bool { return m&mod != 0 }

func (m Modifier) With(mod Modifier) Modifier { return m | mod }

// Names returns the wire names of the set modifiers in canonical order.
func (m Modifier) Names() []string {
	var out []string
	if m.Has(ModControl) {
		out = append(out, "CTRL")
	}
	if m.Has(ModAlt) {
		out = append(out, "ALT")
	}
	if m.Has(ModShift) {
		out = append(out, "SHIFT")
	}
	return out
}

func (m Modifier) String() string {
	n := m.Names()
	if len(n) == 0 {
		return "NONE"
	}
	return strings.Join(n, "+")
}

// ParseModifier parses one modifier name ("Ctrl", "CONTROL", "alt", ...).
func ParseModifier(s string) (Modifier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ctrl", "control", "c":
		return ModControl, nil
	case "alt", "option", "a":
		return ModAlt, nil
	case "shift", "s":
		return ModShift, nil
	default:
		return ModNone, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, s)
	}
}

// Key is a normalized key name: single characters upper-cased, named keys as written
// in the table below.
type Key string

var namedKeys = map[string]Key{
	"enter":     "ENTER",
	"return":    "ENTER",
	"escape":    "ESCAPE",
	"esc":       "ESCAPE",
	"tab":       "TAB",
	"space":     "SPACE",
	"backspace": "BACKSPACE",
	"delete":    "DELETE",
	"up":        "UP",
	"down":      "DOWN",
	"left":      "LEFT",
	"right":     "RIGHT",
}

func ParseKeyName(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptySpec
	}
	if k, ok := namedKeys[strings.ToLower(s)]; ok {
		return k, nil
	}
	if len(s) >= 2 && (s[0] == 'F' || s[0] == 'f') {
		var n int
		if _, err := fmt.Sscanf(s[1:], "%d", &n); err == nil && n >= 1 && n <= 12 {
			return Key(fmt.Sprintf("F%d", n)), nil
		}
	}
	if len([]rune(s)) != 1 {
		return "", fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, s)
	}
	return Key(strings.ToUpper(s)), nil
}

// KeyEvent is a key press with its modifiers. It is comparable and used as the
// key binding table key.
type KeyEvent struct {
	Key       Key
	Modifiers Modifier
}

func (e KeyEvent) String() string {
	if e.Modifiers == ModNone {
		return string(e.Key)
	}
	return e.Modifiers.String() + "+" + string(e.Key)
}

// ParseKey parses specs such as "I", "Ctrl+I" or "Ctrl+Shift+P".
func ParseKey(spec string) (KeyEvent, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return KeyEvent{}, ErrEmptySpec
	}
	parts := strings.Split(spec, "+")
	var mods Modifier
	for _, p := range parts[:len(parts)-1] {
		m, err := ParseModifier(p)
		if err != nil {
			return KeyEvent{}, err
		}
		mods = mods.With(m)
	}
	k, err := ParseKeyName(parts[len(parts)-1])
	if err != nil {
		return KeyEvent{}, err
	}
	return KeyEvent{Key: k, Modifiers: mods}, nil
}
