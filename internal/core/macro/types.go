package macro

// ClickEvent is one recorded pointer click: an absolute screen position and
// the delay that precedes it at 1.0x speed. The first event of a recording
// carries the delay since recording started.
type ClickEvent struct {
	X           int     `json:"x"`
	Y           int     `json:"y"`
	DelayBefore float64 `json:"delay_before"`
}

// PlaybackParams controls one playback invocation. Speed scales every replayed
// delay (>1 plays faster); Loops is the number of full sequential passes.
type PlaybackParams struct {
	Speed float64
	Loops int
}

// State is the engine mode. Exactly one mode is active at a time; all
// transitions go through the Service.
type State uint8

const (
	StateIdle State = iota
	StateRecording
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// EventKind distinguishes adapter notifications.
type EventKind uint8

const (
	// KindKey is a global key or button press/release matched against the
	// configured hotkey codes.
	KindKey EventKind = iota
	// KindClick is a left pointer click observed while recording. Adapters
	// submit only the press edge.
	KindClick
)

// Event is one normalized input notification from an adapter. Code is in the
// submitting adapter's own code space; the Service only compares it against
// the codes it was configured with.
type Event struct {
	Kind  EventKind
	Code  uint16
	Value int32
}

// Config wires hotkey codes and playback defaults into a Service. The three
// codes must be distinct; DefaultSpeed and DefaultLoops are used when playback
// is started from the play hotkey rather than an explicit command.
type Config struct {
	RecordCode   uint16
	PlayCode     uint16
	CancelCode   uint16
	DefaultSpeed float64
	DefaultLoops int
}

// Injector abstracts the pointer side of the input port: reading the current
// position while recording and synthesizing clicks while playing.
type Injector interface {
	Position() (x, y int, err error)
	MoveClick(x, y int) error
	Close() error
}

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
