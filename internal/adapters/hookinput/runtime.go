// Package hookinput is the portable capture and injection backend. It listens
// for global key and mouse events through gohook and injects clicks through
// robotgo, so it works on X11, Windows and macOS without any platform setup.
package hookinput

import (
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"
	hook "github.com/robotn/gohook"

	"macrorec/internal/clock"
	"macrorec/internal/core/macro"
)

type RuntimeConfig struct {
	RecordKey    string
	PlayKey      string
	CancelKey    string
	DefaultSpeed float64
	DefaultLoops int
}

// Runtime owns the gohook event stream and the engine fed by it.
type Runtime struct {
	service *macro.Service
	logger  macro.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	loopWG   sync.WaitGroup
}

type robotgoInjector struct{}

func (robotgoInjector) Position() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}

func (robotgoInjector) MoveClick(x, y int) error {
	robotgo.Move(x, y)
	robotgo.Click("left")
	return nil
}

func (robotgoInjector) Close() error {
	return nil
}

func NewRuntime(cfg RuntimeConfig, logger macro.Logger) (*Runtime, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	recordCode, err := ParseCode(cfg.RecordKey)
	if err != nil {
		return nil, fmt.Errorf("record key: %w", err)
	}
	playCode, err := ParseCode(cfg.PlayKey)
	if err != nil {
		return nil, fmt.Errorf("play key: %w", err)
	}
	cancelCode, err := ParseCode(cfg.CancelKey)
	if err != nil {
		return nil, fmt.Errorf("cancel key: %w", err)
	}

	service, err := macro.NewService(
		macro.Config{
			RecordCode:   recordCode,
			PlayCode:     playCode,
			CancelCode:   cancelCode,
			DefaultSpeed: cfg.DefaultSpeed,
			DefaultLoops: cfg.DefaultLoops,
		},
		robotgoInjector{},
		clock.NewRealClock(),
		logger,
	)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		service: service,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

func (r *Runtime) Start() error {
	r.service.Start()

	events := hook.Start()
	r.loopWG.Add(1)
	go r.forwardLoop(events)
	r.logger.Info("Global input hook started")
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		hook.End()
		close(r.stopCh)
		r.loopWG.Wait()
		r.service.Stop()
	})
}

// Service exposes the engine for UI and CLI control surfaces.
func (r *Runtime) Service() *macro.Service {
	return r.service
}

// forwardLoop normalizes gohook events into engine notifications. Only key
// transitions and left-button presses are of interest; everything else on the
// stream is dropped here so the engine never sees it.
func (r *Runtime) forwardLoop(events chan hook.Event) {
	defer r.loopWG.Done()

	for {
		select {
		case <-r.stopCh:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !r.forward(ev) {
				return
			}
		}
	}
}

func (r *Runtime) forward(ev hook.Event) bool {
	switch ev.Kind {
	case hook.KeyDown:
		return r.service.SubmitEvent(macro.Event{
			Kind:  macro.KindKey,
			Code:  ev.Keycode,
			Value: 1,
		})
	case hook.KeyHold:
		// Auto-repeat; not a fresh press.
		return true
	case hook.KeyUp:
		return r.service.SubmitEvent(macro.Event{
			Kind:  macro.KindKey,
			Code:  ev.Keycode,
			Value: 0,
		})
	case hook.MouseDown:
		if ev.Button != hook.MouseMap["left"] {
			return true
		}
		return r.service.SubmitEvent(macro.Event{Kind: macro.KindClick})
	}
	return true
}
