package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"macrorec/internal/core/macro"
)

type config struct {
	recordRaw   string
	playRaw     string
	cancelRaw   string
	speed       float64
	loops       int
	macroPath   string
	backend     string
	devicePath  string
	ui          bool
	listDevices bool
	captureKey  bool
	logLevel    slog.Level
}

// macroRuntime is what every capture/injection backend exposes to the command
// layer: lifecycle plus the engine it drives.
type macroRuntime interface {
	Start() error
	Stop()
	Service() *macro.Service
}

type lineSinkWriter struct {
	sink  func(line string)
	mu    sync.Mutex
	lines bytes.Buffer
}

func (w *lineSinkWriter) Write(p []byte) (int, error) {
	if w.sink == nil {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	total := len(p)
	for len(p) > 0 {
		idx := bytes.IndexByte(p, '\n')
		if idx == -1 {
			_, _ = w.lines.Write(p)
			break
		}
		_, _ = w.lines.Write(p[:idx])
		line := strings.TrimSpace(w.lines.String())
		w.lines.Reset()
		if line != "" {
			w.sink(line)
		}
		p = p[idx+1:]
	}
	return total, nil
}

func newSlogLogger(level slog.Level, sink func(line string)) *slog.Logger {
	out := io.Writer(os.Stderr)
	if sink != nil {
		out = io.MultiWriter(os.Stderr, &lineSinkWriter{sink: sink})
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid --log-level %q (expected debug|info|warning|error)", value)
	}
}

func parseConfig(args []string) (config, error) {
	cfg := config{}
	flags := flag.NewFlagSet("macrorec", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	var backendRaw string
	var logLevelRaw string
	var cliMode bool

	flags.StringVar(&cfg.recordRaw, "record-key", "f9", "Hotkey that starts/stops recording.")
	flags.StringVar(&cfg.playRaw, "play-key", "f10", "Hotkey that plays the recorded macro.")
	flags.StringVar(&cfg.cancelRaw, "cancel-key", "esc", "Hotkey that cancels the active recording or playback.")
	flags.Float64Var(&cfg.speed, "speed", 1.3, "Playback speed multiplier (2 = twice as fast).")
	flags.IntVar(&cfg.loops, "loops", 1, "How many times the macro repeats per playback.")
	flags.StringVar(&cfg.macroPath, "macro", "", "Macro file to load on start and save on exit.")
	flags.StringVar(&backendRaw, "backend", "auto", "Input backend. Linux: auto|evdev|x11|portable. Elsewhere: auto|portable.")
	flags.StringVar(&cfg.devicePath, "device", "", "Input event device path to listen on, e.g. /dev/input/event4. Auto-detected if omitted.")
	flags.BoolVar(&cfg.listDevices, "list-devices", false, "Print available input devices and exit.")
	flags.BoolVar(&cfg.captureKey, "capture-key", false, "Wait for the next key/button press, print its name and exit.")
	flags.BoolVar(&cfg.ui, "ui", true, "Start desktop GUI (Fyne) by default. Use --ui=false or --cli for terminal mode.")
	flags.BoolVar(&cliMode, "cli", false, "Force terminal mode (disables GUI).")
	flags.StringVar(&logLevelRaw, "log-level", "info", "Log verbosity (default: info). Allowed: debug, info, warning, error.")

	if err := flags.Parse(args); err != nil {
		return cfg, err
	}
	if flags.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}
	if cfg.speed <= 0 {
		return cfg, fmt.Errorf("--speed must be > 0")
	}
	if cfg.loops < 1 {
		return cfg, fmt.Errorf("--loops must be >= 1")
	}
	if cliMode {
		cfg.ui = false
	}

	parsedLevel, err := parseLogLevel(logLevelRaw)
	if err != nil {
		return cfg, err
	}
	backendChoice, err := parseBackendChoice(backendRaw)
	if err != nil {
		return cfg, err
	}

	cfg.backend = backendChoice
	cfg.logLevel = parsedLevel
	return cfg, nil
}

func isPermissionError(err error) bool {
	return errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES)
}

func run(args []string, stderr io.Writer) int {
	cfg, err := parseConfig(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	if cfg.listDevices {
		if err := listInputDevices(cfg.backend); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	if cfg.captureKey {
		name, err := captureNextKeyName(cfg)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Println(name)
		return 0
	}

	if cfg.ui {
		if err := runUI(cfg); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	return runCLI(cfg, stderr)
}

func runCLI(cfg config, stderr io.Writer) int {
	logger := newSlogLogger(cfg.logLevel, nil)
	runtime, err := startRuntimeFromConfig(cfg, logger)
	if err != nil {
		if isPermissionError(err) {
			fmt.Fprintln(stderr, permissionDeniedHint())
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer runtime.Stop()

	service := runtime.Service()
	if cfg.macroPath != "" {
		if err := service.Load(cfg.macroPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Info("No macro file yet; starting empty", "path", cfg.macroPath)
			} else {
				fmt.Fprintln(stderr, err)
				return 1
			}
		}
	}

	logger.Info("Hotkeys",
		"record", cfg.recordRaw,
		"play", cfg.playRaw,
		"cancel", cfg.cancelRaw,
	)
	logger.Info("Playback", "speed", cfg.speed, "loops", cfg.loops)
	logger.Info("Press the record hotkey to start recording clicks. Press Ctrl+C to exit")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	if cfg.macroPath != "" {
		service.Cancel()
		waitForIdle(service, 2*time.Second)
		if err := service.Save(cfg.macroPath); err != nil {
			logger.Error("Failed to save macro on exit", "path", cfg.macroPath, "err", err)
			return 1
		}
	}
	return 0
}

// waitForIdle blocks until a cancelled session has unwound, so a save on exit
// is not rejected as busy.
func waitForIdle(service *macro.Service, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if service.State() == macro.StateIdle {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}
