package hookinput

import (
	"fmt"
	"strings"

	hook "github.com/robotn/gohook"
)

// Common long-form names mapped to the spellings gohook's keycode table uses.
var keyAliases = map[string]string{
	"escape": "esc",
	"return": "enter",
}

// ParseCode resolves a key name such as "f9" or "esc" to the keycode gohook
// reports for that key.
func ParseCode(name string) (uint16, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return 0, fmt.Errorf("empty key name")
	}
	if alias, ok := keyAliases[key]; ok {
		key = alias
	}
	code, ok := hook.Keycode[key]
	if !ok {
		return 0, fmt.Errorf("unknown key %q", name)
	}
	return code, nil
}
