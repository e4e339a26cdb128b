package evdevinput

import (
	"testing"

	evdev "github.com/holoplot/go-evdev"
)

func TestParseCode(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  uint16
	}{
		{"kernel name", "KEY_F9", uint16(evdev.KEY_F9)},
		{"short form", "f9", uint16(evdev.KEY_F9)},
		{"escape short form", "esc", uint16(evdev.KEY_ESC)},
		{"escape long form", "escape", uint16(evdev.KEY_ESC)},
		{"button name", "BTN_LEFT", uint16(evdev.BTN_LEFT)},
		{"numeric", "67", 67},
		{"hex numeric", "0x43", 0x43},
		{"padded", "  f10 ", uint16(evdev.KEY_F10)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCode(tc.value)
			if err != nil {
				t.Fatalf("ParseCode(%q) error = %v", tc.value, err)
			}
			if got != tc.want {
				t.Fatalf("ParseCode(%q) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}
}

func TestParseCodeRejectsBadInput(t *testing.T) {
	for _, value := range []string{"", "   ", "KEY_NOPE", "f99x", "-1", "70000"} {
		if _, err := ParseCode(value); err == nil {
			t.Errorf("ParseCode(%q) error = nil, want failure", value)
		}
	}
}

func TestFormatCodeName(t *testing.T) {
	if got := FormatCodeName(uint16(evdev.KEY_F9)); got != "KEY_F9" {
		t.Fatalf("FormatCodeName(KEY_F9) = %q", got)
	}
}
