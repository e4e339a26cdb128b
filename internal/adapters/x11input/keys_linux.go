//go:build linux

package x11input

import (
	"strings"

	"macrorec/internal/adapters/evdevinput"
)

// linuxCodeToXKeyString translates an evdev key code to the X11 keysym name
// keybind understands. Hotkeys are configured in the kernel code space so both
// Linux backends accept the same names.
func linuxCodeToXKeyString(code uint16) (string, bool) {
	name := evdevinput.FormatCodeName(code)
	if !strings.HasPrefix(name, "KEY_") {
		return "", false
	}
	token := strings.TrimPrefix(name, "KEY_")

	switch token {
	case "ESC":
		return "Escape", true
	case "ENTER":
		return "Return", true
	case "TAB":
		return "Tab", true
	case "SPACE":
		return "space", true
	case "BACKSPACE":
		return "BackSpace", true
	case "LEFTSHIFT":
		return "Shift_L", true
	case "RIGHTSHIFT":
		return "Shift_R", true
	case "LEFTCTRL":
		return "Control_L", true
	case "RIGHTCTRL":
		return "Control_R", true
	case "LEFTALT":
		return "Alt_L", true
	case "RIGHTALT":
		return "Alt_R", true
	case "LEFTMETA":
		return "Super_L", true
	case "RIGHTMETA":
		return "Super_R", true
	case "CAPSLOCK":
		return "Caps_Lock", true
	case "NUMLOCK":
		return "Num_Lock", true
	case "SCROLLLOCK":
		return "Scroll_Lock", true
	case "PAGEUP":
		return "Page_Up", true
	case "PAGEDOWN":
		return "Page_Down", true
	case "INSERT":
		return "Insert", true
	case "DELETE":
		return "Delete", true
	case "HOME":
		return "Home", true
	case "END":
		return "End", true
	case "UP":
		return "Up", true
	case "DOWN":
		return "Down", true
	case "LEFT":
		return "Left", true
	case "RIGHT":
		return "Right", true
	case "MENU":
		return "Menu", true
	case "PAUSE":
		return "Pause", true
	case "MINUS":
		return "minus", true
	case "EQUAL":
		return "equal", true
	case "LEFTBRACE":
		return "bracketleft", true
	case "RIGHTBRACE":
		return "bracketright", true
	case "SEMICOLON":
		return "semicolon", true
	case "APOSTROPHE":
		return "apostrophe", true
	case "GRAVE":
		return "grave", true
	case "BACKSLASH":
		return "backslash", true
	case "COMMA":
		return "comma", true
	case "DOT":
		return "period", true
	case "SLASH":
		return "slash", true
	}

	if len(token) == 1 && token[0] >= 'A' && token[0] <= 'Z' {
		return strings.ToLower(token), true
	}
	if len(token) == 1 && token[0] >= '0' && token[0] <= '9' {
		return token, true
	}
	if strings.HasPrefix(token, "F") && len(token) > 1 && isDigits(token[1:]) {
		return token, true
	}
	if strings.HasPrefix(token, "KP") {
		suffix := strings.TrimPrefix(token, "KP")
		switch suffix {
		case "PLUS":
			return "KP_Add", true
		case "MINUS":
			return "KP_Subtract", true
		case "ASTERISK":
			return "KP_Multiply", true
		case "SLASH":
			return "KP_Divide", true
		case "DOT":
			return "KP_Decimal", true
		case "ENTER":
			return "KP_Enter", true
		}
		if len(suffix) == 1 && suffix[0] >= '0' && suffix[0] <= '9' {
			return "KP_" + suffix, true
		}
	}

	return "", false
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
