package hotkey

import (
	"fmt"
	"strings"
)

// Modifier is a platform-neutral modifier key bit.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

// Accelerator is a parsed key combination such as "Ctrl+Shift+M".
type Accelerator struct {
	Mods Modifier
	Key  string // lower-case key name, e.g. "space", "m", "f5"
}

var modifierNames = map[string]Modifier{
	"shift":   ModShift,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"meta":    ModSuper,
	"win":     ModSuper,
}

// ParseAccelerator parses "Mod+Mod+Key". Exactly one non-modifier key is
// required; names are case-insensitive.
func ParseAccelerator(accel string) (Accelerator, error) {
	var a Accelerator

	parts := strings.Split(accel, "+")
	for i, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			return Accelerator{}, fmt.Errorf("hotkey: empty component in %q", accel)
		}

		last := i == len(parts)-1
		if mod, ok := modifierNames[name]; ok && !last {
			if a.Mods&mod != 0 {
				return Accelerator{}, fmt.Errorf("hotkey: duplicate modifier %q in %q", part, accel)
			}
			a.Mods |= mod
			continue
		}
		if !last {
			return Accelerator{}, fmt.Errorf("hotkey: %q is not a modifier in %q", part, accel)
		}
		if _, ok := modifierNames[name]; ok {
			return Accelerator{}, fmt.Errorf("hotkey: %q has no key", accel)
		}
		a.Key = name
	}
	return a, nil
}

func (a Accelerator) String() string {
	var parts []string
	for _, m := range []struct {
		mod  Modifier
		name string
	}{{ModCtrl, "Ctrl"}, {ModAlt, "Alt"}, {ModShift, "Shift"}, {ModSuper, "Super"}} {
		if a.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	key := a.Key
	if len(key) > 0 {
		key = strings.ToUpper(key[:1]) + key[1:]
	}
	return strings.Join(append(parts, key), "+")
}
