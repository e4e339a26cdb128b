//go:build !linux

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"macrorec/internal/adapters/hookinput"
)

func parseBackendChoice(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" || backend == "auto" || backend == "portable" {
		return "portable", nil
	}
	return "", fmt.Errorf("invalid --backend %q (this platform supports auto|portable)", value)
}

func listInputDevices(string) error {
	return fmt.Errorf("input device listing is only supported on linux")
}

func captureNextKeyName(config) (string, error) {
	return "", fmt.Errorf("key capture is only supported on linux; pass key names like f9 or esc directly")
}

func permissionDeniedHint() string {
	return "Permission denied opening input backend. Grant the app accessibility/input-monitoring permissions and try again."
}

func startRuntimeFromConfig(cfg config, logger *slog.Logger) (macroRuntime, error) {
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
