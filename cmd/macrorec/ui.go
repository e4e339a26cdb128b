package main

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"macrorec/internal/core/macro"
)

type macroTheme struct {
	base fyne.Theme
}

func newMacroTheme() fyne.Theme {
	return &macroTheme{base: theme.DarkTheme()}
}

func (t *macroTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.NRGBA{R: 0x0d, G: 0x10, B: 0x14, A: 0xff}
	case theme.ColorNameHeaderBackground:
		return color.NRGBA{R: 0x12, G: 0x16, B: 0x1c, A: 0xff}
	case theme.ColorNameButton:
		return color.NRGBA{R: 0x1d, G: 0x23, B: 0x2c, A: 0xff}
	case theme.ColorNameDisabledButton:
		return color.NRGBA{R: 0x16, G: 0x1a, B: 0x20, A: 0xff}
	case theme.ColorNameInputBackground:
		return color.NRGBA{R: 0x13, G: 0x18, B: 0x1f, A: 0xff}
	case theme.ColorNameInputBorder, theme.ColorNameSeparator:
		return color.NRGBA{R: 0x2b, G: 0x33, B: 0x40, A: 0xff}
	case theme.ColorNamePrimary, theme.ColorNameHyperlink:
		return color.NRGBA{R: 0x66, G: 0xb3, B: 0xff, A: 0xff}
	case theme.ColorNameFocus:
		return color.NRGBA{R: 0x7a, G: 0xbd, B: 0xff, A: 0x66}
	case theme.ColorNameHover:
		return color.NRGBA{R: 0x7a, G: 0xbd, B: 0xff, A: 0x22}
	case theme.ColorNamePressed:
		return color.NRGBA{R: 0x7a, G: 0xbd, B: 0xff, A: 0x40}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0x66, G: 0xb3, B: 0xff, A: 0x44}
	case theme.ColorNameForeground:
		return color.NRGBA{R: 0xf2, G: 0xf4, B: 0xf8, A: 0xff}
	case theme.ColorNamePlaceHolder:
		return color.NRGBA{R: 0xa9, G: 0xb3, B: 0xc2, A: 0xff}
	case theme.ColorNameError:
		return color.NRGBA{R: 0xff, G: 0x82, B: 0x82, A: 0xff}
	case theme.ColorNameWarning:
		return color.NRGBA{R: 0xff, G: 0x9f, B: 0x5a, A: 0xff}
	case theme.ColorNameSuccess:
		return color.NRGBA{R: 0x7f, G: 0xd4, B: 0xa8, A: 0xff}
	}
	return t.base.Color(name, variant)
}

func (t *macroTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.base.Font(style)
}

func (t *macroTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base.Icon(name)
}

func (t *macroTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 8
	case theme.SizeNameInnerPadding:
		return 8
	case theme.SizeNameInputRadius:
		return 8
	}
	return t.base.Size(name)
}

func debugLogsEnabled() bool {
	return strings.TrimSpace(os.Getenv("DEBUG")) == "1"
}

func displayState(state macro.State) string {
	switch state {
	case macro.StateRecording:
		return "Recording"
	case macro.StatePlaying:
		return "Playing"
	default:
		return "Idle"
	}
}

func formatEventRow(index int, event macro.ClickEvent) string {
	return fmt.Sprintf("%3d  (%d, %d)  +%.3fs", index+1, event.X, event.Y, event.DelayBefore)
}

func runUI(baseCfg config) error {
	fApp := app.New()
	fApp.Settings().SetTheme(newMacroTheme())

	window := fApp.NewWindow("Macro Recorder")
	window.Resize(fyne.NewSize(820, 560))
	window.CenterOnScreen()

	settingsLoadWarning := ""
	stored, err := loadUISettings()
	if err != nil {
		settingsLoadWarning = fmt.Sprintf("Failed to load saved settings: %v", err)
	} else if stored != nil {
		if stored.Speed > 0 {
			baseCfg.speed = stored.Speed
		}
		if stored.Loops >= 1 {
			baseCfg.loops = stored.Loops
		}
		if value := strings.TrimSpace(stored.RecordKey); value != "" {
			baseCfg.recordRaw = value
		}
		if value := strings.TrimSpace(stored.PlayKey); value != "" {
			baseCfg.playRaw = value
		}
		if value := strings.TrimSpace(stored.CancelKey); value != "" {
			baseCfg.cancelRaw = value
		}
		if baseCfg.macroPath == "" {
			baseCfg.macroPath = strings.TrimSpace(stored.LastMacro)
		}
	}

	statusText := widget.NewLabel("Status: starting...")
	statusText.TextStyle = fyne.TextStyle{Bold: true}
	countText := widget.NewLabel("Events: 0")

	errorText := canvas.NewText("", nil)
	errorText.Color = theme.Color(theme.ColorNameError)
	if settingsLoadWarning != "" {
		errorText.Text = settingsLoadWarning
	}
	showError := func(message string) {
		errorText.Text = message
		errorText.Refresh()
	}
	clearError := func() { showError("") }

	logGrid := widget.NewTextGrid()
	logGrid.SetText("")
	logScroll := container.NewVScroll(logGrid)
	logScroll.SetMinSize(fyne.NewSize(0, 140))

	const maxUILogLines = 50
	var logMu sync.Mutex
	logLines := make([]string, 0, maxUILogLines)
	debugLogs := debugLogsEnabled()
	appendLogLine := func(line string) {
		if !debugLogs {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			return
		}

		logMu.Lock()
		logLines = append(logLines, line)
		if len(logLines) > maxUILogLines {
			logLines = logLines[len(logLines)-maxUILogLines:]
		}
		logText := strings.Join(logLines, "\n")
		logMu.Unlock()

		fyne.Do(func() {
			logGrid.SetText(logText)
			logScroll.ScrollToBottom()
		})
	}

	speedEntry := widget.NewEntry()
	speedEntry.SetText(strconv.FormatFloat(baseCfg.speed, 'g', -1, 64))
	loopsEntry := widget.NewEntry()
	loopsEntry.SetText(strconv.Itoa(baseCfg.loops))

	recordKeyEntry := widget.NewEntry()
	recordKeyEntry.SetText(baseCfg.recordRaw)
	playKeyEntry := widget.NewEntry()
	playKeyEntry.SetText(baseCfg.playRaw)
	cancelKeyEntry := widget.NewEntry()
	cancelKeyEntry.SetText(baseCfg.cancelRaw)

	initProgress := widget.NewProgressBarInfinite()
	initProgress.Hide()

	var stateMu sync.Mutex
	currentCfg := baseCfg
	var runningRuntime macroRuntime
	var runtimeStop chan struct{}
	initializing := false

	getState := func() (macroRuntime, config, bool) {
		stateMu.Lock()
		defer stateMu.Unlock()
		return runningRuntime, currentCfg, initializing
	}

	setInitializing := func(v bool) {
		stateMu.Lock()
		initializing = v
		stateMu.Unlock()
	}

	setCurrentCfg := func(cfg config) {
		stateMu.Lock()
		currentCfg = cfg
		stateMu.Unlock()
	}

	currentService := func() *macro.Service {
		runtime, _, _ := getState()
		if runtime == nil {
			return nil
		}
		return runtime.Service()
	}

	persistUISettings := func() {
		_, cfg, _ := getState()
		settings := uiSettings{
			Speed:     cfg.speed,
			Loops:     cfg.loops,
			RecordKey: strings.TrimSpace(cfg.recordRaw),
			PlayKey:   strings.TrimSpace(cfg.playRaw),
			CancelKey: strings.TrimSpace(cfg.cancelRaw),
			LastMacro: strings.TrimSpace(cfg.macroPath),
		}
		if err := saveUISettings(settings); err != nil {
			showError(fmt.Sprintf("Failed to save settings: %v", err))
		}
	}

	// parsePlayback reads speed and loop count from the entries.
	parsePlayback := func() (float64, int, error) {
		speed, err := strconv.ParseFloat(strings.TrimSpace(speedEntry.Text), 64)
		if err != nil || speed <= 0 {
			return 0, 0, fmt.Errorf("speed must be a number > 0")
		}
		loops, err := strconv.Atoi(strings.TrimSpace(loopsEntry.Text))
		if err != nil || loops < 1 {
			return 0, 0, fmt.Errorf("loops must be an integer >= 1")
		}
		return speed, loops, nil
	}

	applyPlaybackDefaults := func() (float64, int, bool) {
		speed, loops, err := parsePlayback()
		if err != nil {
			showError(err.Error())
			return 0, 0, false
		}
		if service := currentService(); service != nil {
			if err := service.SetDefaults(speed, loops); err != nil {
				showError(err.Error())
				return 0, 0, false
			}
		}
		_, cfg, _ := getState()
		cfg.speed = speed
		cfg.loops = loops
		setCurrentCfg(cfg)
		clearError()
		persistUISettings()
		return speed, loops, true
	}
	speedEntry.OnSubmitted = func(string) { applyPlaybackDefaults() }
	loopsEntry.OnSubmitted = func(string) { applyPlaybackDefaults() }

	eventsData := make([]macro.ClickEvent, 0)
	selectedIndex := -1
	eventsList := widget.NewList(
		func() int { return len(eventsData) },
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.TextStyle = fyne.TextStyle{Monospace: true}
			return label
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id < 0 || id >= len(eventsData) {
				return
			}
			item.(*widget.Label).SetText(formatEventRow(id, eventsData[id]))
		},
	)

	delayEntry := widget.NewEntry()
	delayEntry.PlaceHolder = "delay (s)"
	eventsList.OnSelected = func(id widget.ListItemID) {
		selectedIndex = id
		if id >= 0 && id < len(eventsData) {
			delayEntry.SetText(strconv.FormatFloat(eventsData[id].DelayBefore, 'g', -1, 64))
		}
	}
	eventsList.OnUnselected = func(widget.ListItemID) {
		selectedIndex = -1
	}

	refreshEvents := func() {
		service := currentService()
		if service == nil {
			return
		}
		snapshot := service.Events()
		eventsData = snapshot
		if selectedIndex >= len(eventsData) {
			selectedIndex = -1
			eventsList.UnselectAll()
		}
		eventsList.Refresh()
		countText.SetText(fmt.Sprintf("Events: %d", len(snapshot)))
	}

	withService := func(action func(service *macro.Service) error) {
		service := currentService()
		if service == nil {
			return
		}
		if err := action(service); err != nil {
			showError(err.Error())
			return
		}
		clearError()
		refreshEvents()
	}

	recordBtn := widget.NewButton("Record", func() {
		withService(func(service *macro.Service) error {
			return service.ToggleRecording()
		})
	})
	recordBtn.Importance = widget.HighImportance

	playBtn := widget.NewButton("Play", func() {
		speed, loops, ok := applyPlaybackDefaults()
		if !ok {
			return
		}
		withService(func(service *macro.Service) error {
			return service.Play(macro.PlaybackParams{Speed: speed, Loops: loops})
		})
	})
	playBtn.Importance = widget.HighImportance

	cancelBtn := widget.NewButton("Cancel", func() {
		withService(func(service *macro.Service) error {
			service.Cancel()
			return nil
		})
	})

	updateDelayBtn := widget.NewButton("Update Delay", func() {
		if selectedIndex < 0 {
			showError("select an event first")
			return
		}
		delay, err := strconv.ParseFloat(strings.TrimSpace(delayEntry.Text), 64)
		if err != nil {
			showError("delay must be a number")
			return
		}
		index := selectedIndex
		withService(func(service *macro.Service) error {
			return service.UpdateDelay(index, delay)
		})
	})

	deleteBtn := widget.NewButton("Delete", func() {
		if selectedIndex < 0 {
			showError("select an event first")
			return
		}
		index := selectedIndex
		withService(func(service *macro.Service) error {
			return service.DeleteAt(index)
		})
	})

	clearBtn := widget.NewButton("Clear", func() {
		withService(func(service *macro.Service) error {
			return service.Clear()
		})
	})

	rememberMacroPath := func(path string) {
		_, cfg, _ := getState()
		cfg.macroPath = path
		setCurrentCfg(cfg)
		persistUISettings()
	}

	saveBtn := widget.NewButton("Save...", func() {
		dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
			if err != nil || writer == nil {
				return
			}
			path := writer.URI().Path()
			_ = writer.Close()
			withService(func(service *macro.Service) error {
				return service.Save(path)
			})
			rememberMacroPath(path)
		}, window)
	})

	loadBtn := widget.NewButton("Load...", func() {
		dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
			if err != nil || reader == nil {
				return
			}
			path := reader.URI().Path()
			_ = reader.Close()
			withService(func(service *macro.Service) error {
				return service.Load(path)
			})
			rememberMacroPath(path)
		}, window)
	})

	stopRuntime := func() {
		stateMu.Lock()
		runtime := runningRuntime
		stop := runtimeStop
		runningRuntime = nil
		runtimeStop = nil
		stateMu.Unlock()

		if stop != nil {
			close(stop)
		}
		if runtime != nil {
			runtime.Stop()
		}
	}

	// pollLoop mirrors engine state into the UI. The engine has no callbacks;
	// everything the window shows is read through these ticks.
	pollLoop := func(runtime macroRuntime, stopCh <-chan struct{}) {
		stateTicker := time.NewTicker(150 * time.Millisecond)
		defer stateTicker.Stop()

		service := runtime.Service()
		lastShownErr := ""
		for {
			select {
			case <-stopCh:
				return
			case <-stateTicker.C:
				state := service.State()
				count := len(service.Events())
				sessionErr := ""
				if err := service.LastError(); err != nil {
					sessionErr = err.Error()
				}
				fyne.Do(func() {
					statusText.SetText("Status: " + displayState(state))
					countText.SetText(fmt.Sprintf("Events: %d", count))
					if state != macro.StatePlaying && state != macro.StateRecording {
						refreshEvents()
					}
					if sessionErr != lastShownErr {
						lastShownErr = sessionErr
						showError(sessionErr)
					}
				})
			}
		}
	}

	startRuntime := func(cfg config) error {
		logger := newSlogLogger(cfg.logLevel, appendLogLine)
		runtime, err := startRuntimeFromConfig(cfg, logger)
		if err != nil {
			return err
		}

		if cfg.macroPath != "" {
			if loadErr := runtime.Service().Load(cfg.macroPath); loadErr != nil && !errors.Is(loadErr, os.ErrNotExist) {
				logger.Warn("Failed to load macro", "path", cfg.macroPath, "err", loadErr)
			}
		}

		stop := make(chan struct{})
		stateMu.Lock()
		runningRuntime = runtime
		runtimeStop = stop
		currentCfg = cfg
		stateMu.Unlock()

		go pollLoop(runtime, stop)

		fyne.Do(func() {
			clearError()
			refreshEvents()
		})
		return nil
	}

	runRuntimeTaskAsync := func(task func() error) {
		_, _, init := getState()
		if init {
			return
		}
		setInitializing(true)
		fyne.Do(func() {
			clearError()
			initProgress.Show()
		})

		go func() {
			err := task()
			fyne.Do(func() {
				setInitializing(false)
				initProgress.Hide()
				if err != nil {
					if isPermissionError(err) {
						showError(permissionDeniedHint())
					} else {
						showError(err.Error())
					}
					return
				}
				clearError()
				persistUISettings()
			})
		}()
	}

	buildCfgFromUI := func() config {
		_, cfg, _ := getState()
		cfg.recordRaw = strings.TrimSpace(recordKeyEntry.Text)
		cfg.playRaw = strings.TrimSpace(playKeyEntry.Text)
		cfg.cancelRaw = strings.TrimSpace(cancelKeyEntry.Text)
		if speed, loops, err := parsePlayback(); err == nil {
			cfg.speed = speed
			cfg.loops = loops
		}
		return cfg
	}

	applyHotkeysBtn := widget.NewButton("Apply Hotkeys", func() {
		cfg := buildCfgFromUI()
		if cfg.recordRaw == "" || cfg.playRaw == "" || cfg.cancelRaw == "" {
			showError("hotkeys must not be empty")
			return
		}

		_, prevCfg, _ := getState()
		runRuntimeTaskAsync(func() error {
			stopRuntime()
			if err := startRuntime(cfg); err != nil {
				if revertErr := startRuntime(prevCfg); revertErr == nil {
					fyne.DoAndWait(func() {
						recordKeyEntry.SetText(prevCfg.recordRaw)
						playKeyEntry.SetText(prevCfg.playRaw)
						cancelKeyEntry.SetText(prevCfg.cancelRaw)
					})
				}
				return err
			}
			return nil
		})
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var closeOnce sync.Once
	cleanup := func() {
		closeOnce.Do(func() {
			stopRuntime()
		})
	}

	requestQuit := func() {
		fyne.Do(func() {
			persistUISettings()
			cleanup()
			if currentApp := fyne.CurrentApp(); currentApp != nil {
				currentApp.Quit()
				return
			}
			window.SetCloseIntercept(nil)
			window.Close()
		})
	}

	go func() {
		<-sigCh
		requestQuit()
	}()

	window.SetCloseIntercept(func() {
		persistUISettings()
		cleanup()
		if currentApp := fyne.CurrentApp(); currentApp != nil {
			currentApp.Quit()
			return
		}
		window.SetCloseIntercept(nil)
		window.Close()
	})

	titleText := canvas.NewText("MACRO RECORDER", color.NRGBA{R: 0x75, G: 0xb8, B: 0xff, A: 0xff})
	titleText.TextStyle = fyne.TextStyle{Bold: true}
	titleText.TextSize = 28

	accentLine := canvas.NewRectangle(color.NRGBA{R: 0x66, G: 0xb3, B: 0xff, A: 0xff})
	accentLine.SetMinSize(fyne.NewSize(220, 3))

	playbackForm := widget.NewForm(
		widget.NewFormItem("Speed", speedEntry),
		widget.NewFormItem("Loops", loopsEntry),
	)
	hotkeyForm := widget.NewForm(
		widget.NewFormItem("Record", recordKeyEntry),
		widget.NewFormItem("Play", playKeyEntry),
		widget.NewFormItem("Cancel", cancelKeyEntry),
	)
	hotkeyBox := container.NewVBox(hotkeyForm, applyHotkeysBtn)

	playbackCard := widget.NewCard("Playback", "", playbackForm)
	hotkeyCard := widget.NewCard("Hotkeys", "", hotkeyBox)
	controlsRow := container.NewGridWithColumns(2, playbackCard, hotkeyCard)

	sessionRow := container.NewGridWithColumns(3, recordBtn, playBtn, cancelBtn)
	editRow := container.NewBorder(nil, nil, nil,
		container.NewHBox(updateDelayBtn, deleteBtn, clearBtn, saveBtn, loadBtn),
		delayEntry,
	)

	listScroll := container.NewVScroll(eventsList)
	listScroll.SetMinSize(fyne.NewSize(0, 180))
	eventsCard := widget.NewCard("Recorded Clicks", "", container.NewBorder(nil, editRow, nil, nil, listScroll))

	statusRow := container.NewHBox(statusText, countText)

	mainContent := container.NewVBox(
		titleText,
		accentLine,
		controlsRow,
		sessionRow,
		eventsCard,
		statusRow,
		errorText,
		initProgress,
	)
	mainPanel := container.NewPadded(mainContent)

	var rootContent fyne.CanvasObject = mainPanel
	if debugLogs {
		logsCard := widget.NewCard("Logs", "", logScroll)
		split := container.NewVSplit(mainPanel, logsCard)
		split.SetOffset(0.72)
		rootContent = split
	}

	initProgress.Show()
	appendLogLine("INFO Initializing input backend...")
	runRuntimeTaskAsync(func() error {
		return startRuntime(baseCfg)
	})

	window.SetContent(rootContent)
	window.ShowAndRun()
	cleanup()
	return nil
}
