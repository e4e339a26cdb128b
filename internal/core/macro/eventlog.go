package macro

import "sync"

// EventLog is the ordered sequence of recorded clicks. It is owned by the
// Service, which guarantees that no session mutates it concurrently with edit
// commands; the internal mutex exists so observers can snapshot it safely
// while a recording appends.
type EventLog struct {
	mu     sync.Mutex
	events []ClickEvent
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append adds an event to the end of the log. Negative delays are clamped to
// zero so the log never violates the delay invariant.
func (l *EventLog) Append(event ClickEvent) {
	if event.DelayBefore < 0 {
		event.DelayBefore = 0
	}
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

// DeleteAt removes the event at index.
func (l *EventLog) DeleteAt(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.events) {
		return ErrIndexOutOfRange
	}
	l.events = append(l.events[:index], l.events[index+1:]...)
	return nil
}

// UpdateDelay replaces the delay preceding the event at index.
func (l *EventLog) UpdateDelay(index int, delay float64) error {
	if delay < 0 {
		return ErrInvalidDelay
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.events) {
		return ErrIndexOutOfRange
	}
	l.events[index].DelayBefore = delay
	return nil
}

// Clear drops all events.
func (l *EventLog) Clear() {
	l.mu.Lock()
	l.events = l.events[:0]
	l.mu.Unlock()
}

// TrimLast removes the final event if present. Stopping a recording uses this
// to discard the click that was the stop action itself; on an empty log it is
// a no-op.
func (l *EventLog) TrimLast() {
	l.mu.Lock()
	if n := len(l.events); n > 0 {
		l.events = l.events[:n-1]
	}
	l.mu.Unlock()
}

// Replace swaps the whole log contents, used when a macro file is loaded.
func (l *EventLog) Replace(events []ClickEvent) {
	copied := make([]ClickEvent, len(events))
	copy(copied, events)
	l.mu.Lock()
	l.events = copied
	l.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the log.
func (l *EventLog) Snapshot() []ClickEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ClickEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
