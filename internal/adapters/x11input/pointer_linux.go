//go:build linux

package x11input

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil"
)

// Pointer reads and drives the X server pointer: position queries for
// recording and warp-then-click injection for playback. It implements the
// engine's injector interface and is also used standalone by the evdev
// backend, which can capture input but has no way to address the pointer.
type Pointer struct {
	conn     *xgb.Conn
	root     xproto.Window
	ownsConn bool

	injectMu sync.Mutex
}

// NewPointer opens a dedicated X11 connection for pointer control.
func NewPointer() (*Pointer, error) {
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
	return &Pointer{conn: conn, root: xu.RootWin(), ownsConn: true}, nil
}

// newPointerOn wraps an existing connection; xtest must already be
// initialized on it and the connection stays owned by the caller.
func newPointerOn(conn *xgb.Conn, root xproto.Window) *Pointer {
	return &Pointer{conn: conn, root: root}
}

func (p *Pointer) Position() (int, int, error) {
	query, err := xproto.QueryPointer(p.conn, p.root).Reply()
	if err != nil {
		return 0, 0, err
	}
	return int(query.RootX), int(query.RootY), nil
}

// MoveClick warps the pointer to the target and presses and releases the left
// button there.
func (p *Pointer) MoveClick(x, y int) error {
	p.injectMu.Lock()
	defer p.injectMu.Unlock()

	if err := xproto.WarpPointerChecked(
		p.conn,
		xproto.WindowNone,
		p.root,
		0,
		0,
		0,
		0,
		clampToInt16(x),
		clampToInt16(y),
	).Check(); err != nil {
		return err
	}

	for _, eventType := range []byte{xproto.ButtonPress, xproto.ButtonRelease} {
		if err := xtest.FakeInputChecked(
			p.conn,
			eventType,
			byte(xproto.ButtonIndex1),
			xproto.TimeCurrentTime,
			p.root,
			0,
			0,
			0,
		).Check(); err != nil {
			return err
		}
	}

	p.conn.Sync()
	return nil
}

func (p *Pointer) Close() error {
	if p.ownsConn && p.conn != nil {
		p.conn.Close()
	}
	return nil
}

func clampToInt16(value int) int16 {
	if value < -32768 {
		return -32768
	}
	if value > 32767 {
		return 32767
	}
	return int16(value)
}
