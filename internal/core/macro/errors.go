package macro

import "errors"

// Command errors reported to the control surface. Every rejected command
// yields one of these; none of them leaves a partial state transition behind.
var (
	// ErrBusy rejects edit, load and save commands while a recording or
	// playback session is active.
	ErrBusy = errors.New("engine is busy")
	// ErrEmptyMacro rejects playback of a macro with no events.
	ErrEmptyMacro = errors.New("macro has no events")
	// ErrInvalidSpeed rejects a speed multiplier <= 0.
	ErrInvalidSpeed = errors.New("speed multiplier must be greater than zero")
	// ErrInvalidDelay rejects a negative per-event delay.
	ErrInvalidDelay = errors.New("delay must not be negative")
	// ErrIndexOutOfRange rejects an edit addressed past the end of the log.
	ErrIndexOutOfRange = errors.New("event index out of range")
	// ErrMalformedFile marks a macro file with missing or wrong-typed fields.
	ErrMalformedFile = errors.New("malformed macro file")
	// ErrUnsupportedVersion marks a macro file written by an unknown format
	// version.
	ErrUnsupportedVersion = errors.New("unsupported macro file version")
)
