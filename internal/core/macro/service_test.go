package macro

import (
	"errors"
	"sync"
	"testing"
	"time"

	"macrorec/internal/clock"
)

type fakeInjector struct {
	mu       sync.Mutex
	x, y     int
	posErr   error
	clickErr error
	clicks   [][2]int
	closed   bool
}

func (f *fakeInjector) Position() (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.posErr != nil {
		return 0, 0, f.posErr
	}
	return f.x, f.y, nil
}

func (f *fakeInjector) MoveClick(x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicks = append(f.clicks, [2]int{x, y})
	return nil
}

func (f *fakeInjector) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeInjector) setPos(x, y int) {
	f.mu.Lock()
	f.x, f.y = x, y
	f.mu.Unlock()
}

func (f *fakeInjector) clickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clicks)
}

func (f *fakeInjector) clickSnapshot() [][2]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][2]int, len(f.clicks))
	copy(out, f.clicks)
	return out
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func testConfig() Config {
	return Config{
		RecordCode:   1,
		PlayCode:     2,
		CancelCode:   3,
		DefaultSpeed: 1,
		DefaultLoops: 1,
	}
}

func newTestService(t *testing.T, injector *fakeInjector, clk clock.Clock) *Service {
	t.Helper()
	s, err := NewService(testConfig(), injector, clk, noopLogger{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func waitForState(t *testing.T, s *Service, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", s.State(), want)
}

func TestNewServiceValidation(t *testing.T) {
	injector := &fakeInjector{}
	clk := clock.NewRealClock()

	if _, err := NewService(testConfig(), nil, clk, noopLogger{}); err == nil {
		t.Fatal("NewService() accepted nil injector")
	}
	if _, err := NewService(testConfig(), injector, nil, noopLogger{}); err == nil {
		t.Fatal("NewService() accepted nil clock")
	}

	cfg := testConfig()
	cfg.PlayCode = cfg.RecordCode
	if _, err := NewService(cfg, injector, clk, noopLogger{}); err == nil {
		t.Fatal("NewService() accepted duplicate hotkey codes")
	}

	cfg = testConfig()
	cfg.DefaultSpeed = 0
	if _, err := NewService(cfg, injector, clk, noopLogger{}); err == nil {
		t.Fatal("NewService() accepted zero default speed")
	}
}

func TestRecordingCapturesDelaysAndTrimsStopClick(t *testing.T) {
	injector := &fakeInjector{}
	vc := clock.NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, injector, vc)

	if err := s.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}

	vc.Advance(250 * time.Millisecond)
	injector.setPos(100, 200)
	s.handleEvent(Event{Kind: KindClick})

	vc.Advance(500 * time.Millisecond)
	injector.setPos(300, 400)
	s.handleEvent(Event{Kind: KindClick})

	// The stop toggle arrives as a click too; it must not survive in the log.
	injector.setPos(999, 999)
	s.handleEvent(Event{Kind: KindClick})
	if err := s.StopRecording(); err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}

	events := s.Events()
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	want := []ClickEvent{
		{X: 100, Y: 200, DelayBefore: 0.25},
		{X: 300, Y: 400, DelayBefore: 0.5},
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %+v, want %+v", i, events[i], want[i])
		}
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %v, want StateIdle", s.State())
	}
}

func TestRecordingSingleClickYieldsEmptyMacro(t *testing.T) {
	injector := &fakeInjector{}
	vc := clock.NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, injector, vc)

	if err := s.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	s.handleEvent(Event{Kind: KindClick})
	if err := s.StopRecording(); err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}

	if got := len(s.Events()); got != 0 {
		t.Fatalf("len(events) = %d, want 0", got)
	}
}

func TestStartRecordingClearsPreviousMacro(t *testing.T) {
	injector := &fakeInjector{}
	vc := clock.NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, injector, vc)

	s.log.Append(ClickEvent{X: 1})
	s.log.Append(ClickEvent{X: 2})

	if err := s.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if got := len(s.Events()); got != 0 {
		t.Fatalf("len(events) = %d after start, want 0", got)
	}
}

func TestStopRecordingWhileIdleIsNoOp(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())

	s.log.Append(ClickEvent{X: 1})
	if err := s.StopRecording(); err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
	if got := len(s.Events()); got != 1 {
		t.Fatalf("len(events) = %d, want 1 (idle stop must not trim)", got)
	}
}

func TestClicksOutsideRecordingAreDropped(t *testing.T) {
	injector := &fakeInjector{x: 5, y: 5}
	s := newTestService(t, injector, clock.NewRealClock())

	s.handleEvent(Event{Kind: KindClick})
	if got := len(s.Events()); got != 0 {
		t.Fatalf("len(events) = %d, want 0", got)
	}
}

func TestPositionErrorAbortsRecording(t *testing.T) {
	injector := &fakeInjector{posErr: errors.New("display gone")}
	s := newTestService(t, injector, clock.NewRealClock())

	if err := s.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	s.handleEvent(Event{Kind: KindClick})

	if s.State() != StateIdle {
		t.Fatalf("state = %v, want StateIdle", s.State())
	}
	if s.LastError() == nil {
		t.Fatal("LastError() = nil, want capture failure")
	}
}

func TestHotkeyRouting(t *testing.T) {
	injector := &fakeInjector{}
	vc := clock.NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, injector, vc)

	// Key releases must not trigger anything.
	s.handleEvent(Event{Kind: KindKey, Code: 1, Value: 0})
	if s.State() != StateIdle {
		t.Fatalf("state = %v after release, want StateIdle", s.State())
	}

	s.handleEvent(Event{Kind: KindKey, Code: 1, Value: 1})
	if s.State() != StateRecording {
		t.Fatalf("state = %v after record press, want StateRecording", s.State())
	}

	// Play is not a valid exit from Recording; the press is dropped.
	s.handleEvent(Event{Kind: KindKey, Code: 2, Value: 1})
	if s.State() != StateRecording {
		t.Fatalf("state = %v after play press while recording, want StateRecording", s.State())
	}

	s.handleEvent(Event{Kind: KindKey, Code: 3, Value: 1})
	if s.State() != StateIdle {
		t.Fatalf("state = %v after cancel press, want StateIdle", s.State())
	}
}

func TestCancelDuringRecordingTrimsStopClick(t *testing.T) {
	injector := &fakeInjector{}
	vc := clock.NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, injector, vc)

	if err := s.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	injector.setPos(10, 10)
	s.handleEvent(Event{Kind: KindClick})
	injector.setPos(20, 20)
	s.handleEvent(Event{Kind: KindClick})

	s.Cancel()

	if s.State() != StateIdle {
		t.Fatalf("state = %v, want StateIdle", s.State())
	}
	if got := len(s.Events()); got != 1 {
		t.Fatalf("len(events) = %d, want 1", got)
	}
}

func TestCancelWhileIdleIsNoOp(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())

	s.log.Append(ClickEvent{X: 1})
	s.Cancel()

	if s.State() != StateIdle {
		t.Fatalf("state = %v, want StateIdle", s.State())
	}
	if got := len(s.Events()); got != 1 {
		t.Fatalf("len(events) = %d, want 1", got)
	}
}

func TestPlayRejectsInvalidParams(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())
	s.log.Append(ClickEvent{X: 1})

	if err := s.Play(PlaybackParams{Speed: 0, Loops: 1}); !errors.Is(err, ErrInvalidSpeed) {
		t.Fatalf("Play(speed=0) error = %v, want ErrInvalidSpeed", err)
	}
	if err := s.Play(PlaybackParams{Speed: -1, Loops: 1}); !errors.Is(err, ErrInvalidSpeed) {
		t.Fatalf("Play(speed=-1) error = %v, want ErrInvalidSpeed", err)
	}
}

func TestPlayEmptyMacro(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())

	if err := s.Play(PlaybackParams{Speed: 1, Loops: 1}); !errors.Is(err, ErrEmptyMacro) {
		t.Fatalf("Play() error = %v, want ErrEmptyMacro", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %v, want StateIdle", s.State())
	}
}

func TestPlayWhileRecordingIsBusy(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())

	if err := s.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if err := s.Play(PlaybackParams{Speed: 1, Loops: 1}); !errors.Is(err, ErrBusy) {
		t.Fatalf("Play() error = %v, want ErrBusy", err)
	}
}

func TestMutationsRejectedDuringPlayback(t *testing.T) {
	injector := &fakeInjector{}
	vc := clock.NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, injector, vc)

	// A long first delay on the virtual clock parks the playback goroutine.
	s.log.Append(ClickEvent{X: 1, DelayBefore: 60})
	if err := s.Play(PlaybackParams{Speed: 1, Loops: 1}); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	if err := s.StartRecording(); !errors.Is(err, ErrBusy) {
		t.Errorf("StartRecording() error = %v, want ErrBusy", err)
	}
	if err := s.ToggleRecording(); !errors.Is(err, ErrBusy) {
		t.Errorf("ToggleRecording() error = %v, want ErrBusy", err)
	}
	if err := s.StopRecording(); !errors.Is(err, ErrBusy) {
		t.Errorf("StopRecording() error = %v, want ErrBusy", err)
	}
	if err := s.Play(PlaybackParams{Speed: 1, Loops: 1}); !errors.Is(err, ErrBusy) {
		t.Errorf("Play() error = %v, want ErrBusy", err)
	}
	if err := s.UpdateDelay(0, 1); !errors.Is(err, ErrBusy) {
		t.Errorf("UpdateDelay() error = %v, want ErrBusy", err)
	}
	if err := s.DeleteAt(0); !errors.Is(err, ErrBusy) {
		t.Errorf("DeleteAt() error = %v, want ErrBusy", err)
	}
	if err := s.Clear(); !errors.Is(err, ErrBusy) {
		t.Errorf("Clear() error = %v, want ErrBusy", err)
	}

	s.Cancel()
	waitForState(t, s, StateIdle, time.Second)

	if got := len(s.Events()); got != 1 {
		t.Fatalf("len(events) = %d after playback, want 1", got)
	}
}

func TestEditCommandsWhileIdle(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())

	s.log.Append(ClickEvent{X: 1, DelayBefore: 0.1})
	s.log.Append(ClickEvent{X: 2, DelayBefore: 0.2})

	if err := s.UpdateDelay(0, 2.5); err != nil {
		t.Fatalf("UpdateDelay() error = %v", err)
	}
	if err := s.DeleteAt(1); err != nil {
		t.Fatalf("DeleteAt() error = %v", err)
	}

	events := s.Events()
	if len(events) != 1 || events[0].DelayBefore != 2.5 {
		t.Fatalf("unexpected events after edits: %#v", events)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := len(s.Events()); got != 0 {
		t.Fatalf("len(events) = %d after clear, want 0", got)
	}
}

func TestSetDefaults(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())

	if err := s.SetDefaults(0, 1); !errors.Is(err, ErrInvalidSpeed) {
		t.Fatalf("SetDefaults(0, 1) error = %v, want ErrInvalidSpeed", err)
	}
	if err := s.SetDefaults(2.5, 0); err != nil {
		t.Fatalf("SetDefaults() error = %v", err)
	}
	speed, loops := s.Defaults()
	if speed != 2.5 || loops != 1 {
		t.Fatalf("Defaults() = (%v, %d), want (2.5, 1)", speed, loops)
	}
}

func TestSubmitEventAfterStop(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())
	s.Start()

	if !s.SubmitEvent(Event{Kind: KindKey, Code: 1, Value: 1}) {
		t.Fatal("SubmitEvent() = false before stop")
	}
	waitForState(t, s, StateRecording, time.Second)

	s.Stop()
	if s.SubmitEvent(Event{Kind: KindClick}) {
		t.Fatal("SubmitEvent() = true after stop")
	}
	injector.mu.Lock()
	closed := injector.closed
	injector.mu.Unlock()
	if !closed {
		t.Fatal("injector not closed on stop")
	}
}
