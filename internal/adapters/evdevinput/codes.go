package evdevinput

import (
	"fmt"
	"strconv"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// CodeBTNLeft is the evdev code for the left mouse button, the click this
// recorder captures and replays.
const CodeBTNLeft uint16 = uint16(evdev.BTN_LEFT)

// ParseCode resolves a hotkey name to its evdev code. It accepts the kernel
// spelling ("KEY_F9"), a bare short form ("f9", "esc"), or a numeric code.
func ParseCode(value string) (uint16, error) {
	raw := strings.ToUpper(strings.TrimSpace(value))
	if raw == "" {
		return 0, fmt.Errorf("key name is empty")
	}
	if code, ok := evdev.KEYFromString[raw]; ok {
		return uint16(code), nil
	}
	if code, ok := evdev.KEYFromString["KEY_"+shortFormAlias(raw)]; ok {
		return uint16(code), nil
	}

	parsed, err := strconv.ParseInt(raw, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown key %q: use names like f9/esc/KEY_F9 or a numeric code", value)
	}
	if parsed < 0 || parsed > 0xFFFF {
		return 0, fmt.Errorf("key code out of range: %d", parsed)
	}
	return uint16(parsed), nil
}

func shortFormAlias(name string) string {
	switch name {
	case "ESCAPE":
		return "ESC"
	case "RETURN":
		return "ENTER"
	default:
		return name
	}
}

// FormatCodeName renders an evdev code as its kernel name, falling back to
// the numeric value for codes without one.
func FormatCodeName(code uint16) string {
	name := evdev.CodeName(evdev.EV_KEY, evdev.EvCode(code))
	if name != "" {
		return name
	}
	return strconv.Itoa(int(code))
}
