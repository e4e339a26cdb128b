package main

import (
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	if cfg.recordRaw != "f9" || cfg.playRaw != "f10" || cfg.cancelRaw != "esc" {
		t.Fatalf("unexpected default hotkeys: %q %q %q", cfg.recordRaw, cfg.playRaw, cfg.cancelRaw)
	}
	if cfg.speed != 1.3 {
		t.Fatalf("speed = %v, want 1.3", cfg.speed)
	}
	if cfg.loops != 1 {
		t.Fatalf("loops = %d, want 1", cfg.loops)
	}
	if !cfg.ui {
		t.Fatal("ui should default to true")
	}
	if cfg.logLevel != slog.LevelInfo {
		t.Fatalf("logLevel = %v, want info", cfg.logLevel)
	}
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	cases := [][]string{
		{"-speed", "0"},
		{"-speed", "-2"},
		{"-loops", "0"},
		{"-log-level", "noisy"},
		{"positional"},
	}
	for _, args := range cases {
		if _, err := parseConfig(args); err == nil {
			t.Errorf("parseConfig(%v) error = nil, want failure", args)
		}
	}
}

func TestParseConfigCLIModeDisablesUI(t *testing.T) {
	cfg, err := parseConfig([]string{"-cli"})
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	if cfg.ui {
		t.Fatal("-cli did not disable the UI")
	}
}

func TestLineSinkWriterSplitsLines(t *testing.T) {
	var mu sync.Mutex
	var got []string
	w := &lineSinkWriter{sink: func(line string) {
		mu.Lock()
		got = append(got, line)
		mu.Unlock()
	}}

	for _, chunk := range []string{"first li", "ne\nsecond line\n", "  \n", "tail"} {
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	want := []string{"first line", "second line"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("sink lines = %v, want %v", got, want)
	}
}
