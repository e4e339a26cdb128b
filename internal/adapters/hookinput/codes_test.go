package hookinput

import (
	"testing"

	hook "github.com/robotn/gohook"
)

func TestParseCode(t *testing.T) {
	cases := []struct {
		name string
		key  string
		want uint16
	}{
		{"function key", "f9", hook.Keycode["f9"]},
		{"escape short form", "esc", hook.Keycode["esc"]},
		{"escape long form", "escape", hook.Keycode["esc"]},
		{"uppercase", "F10", hook.Keycode["f10"]},
		{"padded", "  f10  ", hook.Keycode["f10"]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCode(tc.key)
			if err != nil {
				t.Fatalf("ParseCode(%q) error = %v", tc.key, err)
			}
			if got != tc.want {
				t.Fatalf("ParseCode(%q) = %d, want %d", tc.key, got, tc.want)
			}
		})
	}
}

func TestParseCodeRejectsUnknownKeys(t *testing.T) {
	for _, key := range []string{"", "  ", "notakey", "f99"} {
		if _, err := ParseCode(key); err == nil {
			t.Errorf("ParseCode(%q) error = nil, want failure", key)
		}
	}
}
