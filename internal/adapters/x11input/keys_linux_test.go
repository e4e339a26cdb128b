//go:build linux

package x11input

import (
	"testing"

	"macrorec/internal/adapters/evdevinput"
)

func TestLinuxCodeToXKeyString(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"KEY_F9", "F9"},
		{"KEY_F10", "F10"},
		{"KEY_ESC", "Escape"},
		{"KEY_A", "a"},
		{"KEY_5", "5"},
		{"KEY_SPACE", "space"},
		{"KEY_KPENTER", "KP_Enter"},
		{"KEY_KP7", "KP_7"},
	}
	for _, tc := range cases {
		code, err := evdevinput.ParseCode(tc.key)
		if err != nil {
			t.Fatalf("ParseCode(%q) error = %v", tc.key, err)
		}
		got, ok := linuxCodeToXKeyString(code)
		if !ok {
			t.Fatalf("linuxCodeToXKeyString(%s) not resolved", tc.key)
		}
		if got != tc.want {
			t.Errorf("linuxCodeToXKeyString(%s) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestLinuxCodeToXKeyStringRejectsButtons(t *testing.T) {
	if _, ok := linuxCodeToXKeyString(evdevinput.CodeBTNLeft); ok {
		t.Fatal("linuxCodeToXKeyString accepted BTN_LEFT")
	}
}
