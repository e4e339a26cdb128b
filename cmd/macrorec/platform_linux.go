//go:build linux

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"macrorec/internal/adapters/evdevinput"
	"macrorec/internal/adapters/hookinput"
	"macrorec/internal/adapters/x11input"
)

func parseBackendChoice(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" {
		backend = "auto"
	}
	switch backend {
	case "auto", "evdev", "x11", "portable":
		return backend, nil
	case "wayland":
		return "evdev", nil
	default:
		return "", fmt.Errorf("invalid --backend %q (linux supports auto|evdev|x11|portable)", value)
	}
}

func listInputDevices(string) error {
	devices, err := evdevinput.ListInputDevices()
	if err != nil {
		return err
	}
	for _, dev := range devices {
		virtualTag := "physical"
		if dev.IsVirtual {
			virtualTag = "virtual"
		}
		pointerTag := "non-pointer"
		if dev.IsPointer {
			pointerTag = "pointer"
		}
		fmt.Printf("%s: %s [%s, %s]\n", dev.Path, dev.Name, virtualTag, pointerTag)
	}
	return nil
}

func captureNextKeyName(cfg config) (string, error) {
	code, err := evdevinput.CaptureNextKeyCode(cfg.devicePath, 10*time.Second)
	if err != nil {
		return "", err
	}
	return evdevinput.FormatCodeName(code), nil
}

func permissionDeniedHint() string {
	return "Permission denied opening input backend. The evdev backend needs read access to /dev/input; the x11 backend needs an active X11 session and DISPLAY set."
}

func startRuntimeFromConfig(cfg config, logger *slog.Logger) (macroRuntime, error) {
	switch resolveLinuxBackend(cfg.backend) {
	case "x11":
		return startX11Runtime(cfg, logger)
	case "portable":
		return startPortableRuntime(cfg, logger)
	default:
		return startEvdevRuntime(cfg, logger)
	}
}

func parseHotkeyCodes(cfg config) (record, play, cancel uint16, err error) {
	record, err = evdevinput.ParseCode(cfg.recordRaw)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("record key: %w", err)
	}
	play, err = evdevinput.ParseCode(cfg.playRaw)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("play key: %w", err)
	}
	cancel, err = evdevinput.ParseCode(cfg.cancelRaw)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("cancel key: %w", err)
	}
	return record, play, cancel, nil
}

// startEvdevRuntime reads hotkeys and clicks from the kernel input devices
// and borrows the X server pointer for position reads and click injection.
func startEvdevRuntime(cfg config, logger *slog.Logger) (macroRuntime, error) {
	record, play, cancel, err := parseHotkeyCodes(cfg)
	if err != nil {
		return nil, err
	}

	selection, err := evdevinput.OpenSourceSelection(cfg.devicePath, []uint16{record, play, cancel})
	if err != nil {
		return nil, err
	}
	closeSelection := func() {
		for _, dev := range selection.Devices {
			_ = dev.Close()
		}
	}

	for _, dev := range selection.Devices {
		name, _ := dev.Name()
		logger.Info("Using source device", "path", dev.Path(), "name", name)
	}

	pointer, err := x11input.NewPointer()
	if err != nil {
		closeSelection()
		return nil, fmt.Errorf("evdev backend needs the X server for pointer control: %w", err)
	}

	runtime, err := evdevinput.NewRuntime(
		selection,
		evdevinput.RuntimeConfig{
			RecordCode:   record,
			PlayCode:     play,
			CancelCode:   cancel,
			DefaultSpeed: cfg.speed,
			DefaultLoops: cfg.loops,
		},
		pointer,
		logger,
	)
	if err != nil {
		closeSelection()
		_ = pointer.Close()
		return nil, err
	}

	if err := runtime.Start(); err != nil {
		runtime.Stop()
		return nil, err
	}

	logger.Info("Backend", "name", "evdev")
	return runtime, nil
}

func startX11Runtime(cfg config, logger *slog.Logger) (macroRuntime, error) {
	if cfg.devicePath != "" {
		logger.Warn("--device is ignored on x11 backend")
	}

	record, play, cancel, err := parseHotkeyCodes(cfg)
	if err != nil {
		return nil, err
	}

	runtime, err := x11input.NewRuntime(
		x11input.RuntimeConfig{
			RecordCode:   record,
			PlayCode:     play,
			CancelCode:   cancel,
			DefaultSpeed: cfg.speed,
			DefaultLoops: cfg.loops,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	if err := runtime.Start(); err != nil {
		runtime.Stop()
		return nil, err
	}

	logger.Info("Backend", "name", "x11")
	return runtime, nil
}

func startPortableRuntime(cfg config, logger *slog.Logger) (macroRuntime, error) {
	if cfg.devicePath != "" {
		logger.Warn("--device is ignored on portable backend")
	}

	runtime, err := hookinput.NewRuntime(
		hookinput.RuntimeConfig{
			RecordKey:    cfg.recordRaw,
			PlayKey:      cfg.playRaw,
			CancelKey:    cfg.cancelRaw,
			DefaultSpeed: cfg.speed,
			DefaultLoops: cfg.loops,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	if err := runtime.Start(); err != nil {
		runtime.Stop()
		return nil, err
	}

	logger.Info("Backend", "name", "portable")
	return runtime, nil
}

func resolveLinuxBackend(configured string) string {
	choice := strings.ToLower(strings.TrimSpace(configured))
	if choice == "" {
		choice = "auto"
	}
	if choice != "auto" {
		return choice
	}

	sessionType := strings.ToLower(strings.TrimSpace(os.Getenv("XDG_SESSION_TYPE")))
	switch sessionType {
	case "wayland":
		return "evdev"
	case "x11":
		return "x11"
	}

	if strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) != "" {
		return "evdev"
	}
	if strings.TrimSpace(os.Getenv("DISPLAY")) != "" {
		return "x11"
	}
	return "evdev"
}
