//go:build linux

// Package x11input is the X11 backend: hotkeys are observed through passive
// key grabs on the root window, clicks are observed through a synchronous
// left-button grab that replays each press to the application underneath, and
// playback is injected with the XTEST extension.
package x11input

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"

	"macrorec/internal/adapters/evdevinput"
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
	xu      *xgbutil.XUtil
	conn    *xgb.Conn
	rootWin xproto.Window

	service *macro.Service
	logger  macro.Logger

	mu            sync.RWMutex
	keyToCode     map[xproto.Keycode]uint16
	grabbedKeys   []xproto.Keycode
	buttonGrabbed bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewRuntime(cfg RuntimeConfig, logger macro.Logger) (*Runtime, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}
	conn := xu.Conn()
	if conn == nil {
		return nil, fmt.Errorf("failed to open X11 connection")
	}

	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, err
	}
	keybind.Initialize(xu)

	r := &Runtime{
		xu:      xu,
		conn:    conn,
		rootWin: xu.RootWin(),
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	service, err := macro.NewService(
		macro.Config{
			RecordCode:   cfg.RecordCode,
			PlayCode:     cfg.PlayCode,
			CancelCode:   cfg.CancelCode,
			DefaultSpeed: cfg.DefaultSpeed,
			DefaultLoops: cfg.DefaultLoops,
		},
		newPointerOn(conn, r.rootWin),
		clock.NewRealClock(),
		logger,
	)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r.service = service

	if err := r.applyGrabs([]uint16{cfg.RecordCode, cfg.PlayCode, cfg.CancelCode}); err != nil {
		r.service.Stop()
		return nil, err
	}

	return r, nil
}

func (r *Runtime) Start() error {
	r.service.Start()
	go r.eventLoop()
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)

		r.mu.Lock()
		r.ungrabAllLocked()
		if r.conn != nil {
			r.conn.Close()
		}
		r.mu.Unlock()

		<-r.doneCh
		r.service.Stop()
	})
}

// Service exposes the engine for UI and CLI control surfaces.
func (r *Runtime) Service() *macro.Service {
	return r.service
}

func (r *Runtime) eventLoop() {
	defer close(r.doneCh)

	for {
		event, xerr := r.conn.WaitForEvent()
		if xerr != nil {
			select {
			case <-r.stopCh:
				return
			default:
			}
			r.logger.Warn("X11 event error", "err", xerr)
			continue
		}
		if event == nil {
			return
		}

		switch ev := event.(type) {
		case xproto.KeyPressEvent:
			if code, ok := r.lookupKeyCode(ev.Detail); ok {
				r.service.SubmitEvent(macro.Event{Kind: macro.KindKey, Code: code, Value: 1})
			}
		case xproto.KeyReleaseEvent:
			if code, ok := r.lookupKeyCode(ev.Detail); ok {
				r.service.SubmitEvent(macro.Event{Kind: macro.KindKey, Code: code, Value: 0})
			}
		case xproto.ButtonPressEvent:
			if ev.Detail == xproto.Button(xproto.ButtonIndex1) {
				r.service.SubmitEvent(macro.Event{Kind: macro.KindClick})
			}
			// The sync grab froze the pointer; replay delivers the click to
			// whatever is underneath.
			_ = xproto.AllowEventsChecked(r.conn, xproto.AllowReplayPointer, xproto.TimeCurrentTime).Check()
		}
	}
}

func (r *Runtime) lookupKeyCode(key xproto.Keycode) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.keyToCode[key]
	return code, ok
}

// applyGrabs resolves each hotkey to its X11 keycodes and installs the grabs,
// plus the synchronous left-button grab used to observe clicks.
func (r *Runtime) applyGrabs(codes []uint16) error {
	keyToCode := make(map[xproto.Keycode]uint16)
	for _, code := range codes {
		keycodes, err := r.resolveKeycodes(code)
		if err != nil {
			return err
		}
		for _, key := range keycodes {
			if existing, ok := keyToCode[key]; ok && existing != code {
				return fmt.Errorf("hotkeys %s and %s resolve to the same X11 keycode",
					evdevinput.FormatCodeName(existing), evdevinput.FormatCodeName(code))
			}
			keyToCode[key] = code
		}
	}

	keys := make([]xproto.Keycode, 0, len(keyToCode))
	for key := range keyToCode {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ungrabAllLocked()
	if err := r.grabAllLocked(keys); err != nil {
		r.ungrabAllLocked()
		return err
	}
	r.keyToCode = keyToCode
	return nil
}

func (r *Runtime) grabAllLocked(keys []xproto.Keycode) error {
	for _, key := range keys {
		if err := xproto.GrabKeyChecked(
			r.conn,
			false,
			r.rootWin,
			xproto.ModMaskAny,
			key,
			xproto.GrabModeAsync,
			xproto.GrabModeAsync,
		).Check(); err != nil {
			return err
		}
		r.grabbedKeys = append(r.grabbedKeys, key)
	}

	if err := xproto.GrabButtonChecked(
		r.conn,
		false,
		r.rootWin,
		xproto.EventMaskButtonPress,
		xproto.GrabModeSync,
		xproto.GrabModeAsync,
		xproto.WindowNone,
		xproto.CursorNone,
		byte(xproto.ButtonIndex1),
		xproto.ModMaskAny,
	).Check(); err != nil {
		return err
	}
	r.buttonGrabbed = true
	return nil
}

func (r *Runtime) ungrabAllLocked() {
	for _, key := range r.grabbedKeys {
		xproto.UngrabKey(r.conn, key, r.rootWin, xproto.ModMaskAny)
	}
	r.grabbedKeys = nil
	if r.buttonGrabbed {
		xproto.UngrabButton(r.conn, byte(xproto.ButtonIndex1), r.rootWin, xproto.ModMaskAny)
		r.buttonGrabbed = false
	}
}

func (r *Runtime) resolveKeycodes(code uint16) ([]xproto.Keycode, error) {
	keyName, ok := linuxCodeToXKeyString(code)
	if !ok {
		return nil, fmt.Errorf("unsupported X11 key code %s", evdevinput.FormatCodeName(code))
	}

	keycodes := keybind.StrToKeycodes(r.xu, keyName)
	if len(keycodes) == 0 {
		return nil, fmt.Errorf("failed to resolve X11 key %q", keyName)
	}

	uniq := make(map[xproto.Keycode]struct{}, len(keycodes))
	for _, keycode := range keycodes {
		uniq[keycode] = struct{}{}
	}
	result := make([]xproto.Keycode, 0, len(uniq))
	for key := range uniq {
		result = append(result, key)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}
