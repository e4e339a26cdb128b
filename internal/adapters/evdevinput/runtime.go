//go:build linux

// Package evdevinput captures hotkeys and clicks straight from the kernel
// input devices. It has no opinion about how clicks are replayed; the pointer
// injector is supplied by the caller, since evdev alone cannot place the
// pointer at an absolute position or report where it is.
package evdevinput

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"macrorec/internal/clock"
	"macrorec/internal/core/macro"
)

type RuntimeConfig struct {
	RecordCode   uint16
	PlayCode     uint16
	CancelCode   uint16
	DefaultSpeed float64
	DefaultLoops int
}

type Runtime struct {
	sourceDevices []*evdev.InputDevice
	pointerPaths  map[string]struct{}
	service       *macro.Service
	logger        macro.Logger

	stopCh    chan struct{}
	stopOnce  sync.Once
	readersWG sync.WaitGroup
}

func NewRuntime(selection *SourceSelection, cfg RuntimeConfig, injector macro.Injector, logger macro.Logger) (*Runtime, error) {
	if selection == nil {
		return nil, fmt.Errorf("source selection is nil")
	}
	if len(selection.Devices) == 0 {
		return nil, fmt.Errorf("source selection has no devices")
	}
	if injector == nil {
		return nil, fmt.Errorf("injector is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	service, err := macro.NewService(
		macro.Config{
			RecordCode:   cfg.RecordCode,
			PlayCode:     cfg.PlayCode,
			CancelCode:   cfg.CancelCode,
			DefaultSpeed: cfg.DefaultSpeed,
			DefaultLoops: cfg.DefaultLoops,
		},
		injector,
		clock.NewRealClock(),
		logger,
	)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		sourceDevices: selection.Devices,
		pointerPaths:  selection.PointerPaths,
		service:       service,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}, nil
}

func (r *Runtime) Start() error {
	for _, dev := range r.sourceDevices {
		if err := dev.NonBlock(); err != nil {
			return fmt.Errorf("failed to set nonblocking mode for %s: %w", dev.Path(), err)
		}
	}

	r.service.Start()
	for _, dev := range r.sourceDevices {
		r.readersWG.Add(1)
		go r.readLoop(dev)
	}
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		for _, dev := range r.sourceDevices {
			_ = dev.Close()
		}
		r.readersWG.Wait()
		r.service.Stop()
	})
}

// Service exposes the engine for UI and CLI control surfaces.
func (r *Runtime) Service() *macro.Service {
	return r.service
}

func (r *Runtime) readLoop(dev *evdev.InputDevice) {
	defer r.readersWG.Done()

	path := dev.Path()
	_, isPointer := r.pointerPaths[path]

	for {
		events, err := dev.ReadSlice(64)
		if err != nil {
			if r.stopped() || isDeviceClosedError(err) {
				return
			}
			if isWouldBlockError(err) {
				if !r.sleepWithStop(10 * time.Millisecond) {
					return
				}
				continue
			}
			r.logger.Warn("Read failed", "path", path, "err", err)
			if !r.sleepWithStop(100 * time.Millisecond) {
				return
			}
			continue
		}

		for _, event := range events {
			if event.Type != evdev.EV_KEY {
				continue
			}
			if !r.submit(uint16(event.Code), event.Value, isPointer) {
				return
			}
		}
	}
}

// submit maps one kernel key event to an engine notification. The left button
// on a pointer device is a click observation; everything else is treated as a
// key and filtered against the hotkeys by the engine.
func (r *Runtime) submit(code uint16, value int32, isPointer bool) bool {
	if code == CodeBTNLeft {
		if !isPointer || value != 1 {
			return true
		}
		return r.service.SubmitEvent(macro.Event{Kind: macro.KindClick})
	}
	return r.service.SubmitEvent(macro.Event{
		Kind:  macro.KindKey,
		Code:  code,
		Value: value,
	})
}

func (r *Runtime) stopped() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

func (r *Runtime) sleepWithStop(duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-r.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func isDeviceClosedError(err error) bool {
	return errors.Is(err, syscall.EBADF) || errors.Is(err, syscall.ENODEV)
}

func isWouldBlockError(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
