package macro

import (
	"fmt"
	"sync"
	"time"

	"macrorec/internal/clock"
)

// Service is the macro engine: it owns the event log and the Idle/Recording/
// Playing state machine, consumes normalized input notifications from the
// adapters, and runs at most one session at a time. Hotkey routing happens on
// a single event-loop goroutine; playback runs on its own goroutine so a
// sleeping replay never stalls hotkey delivery.
type Service struct {
	cfg      Config
	injector Injector
	clk      clock.Clock
	logger   Logger

	log *EventLog

	stateMu       sync.Mutex
	state         State
	lastEventTime time.Time
	cancelCh      chan struct{}
	lastErr       error
	defaultSpeed  float64
	defaultLoops  int

	eventsCh  chan Event
	stopCh    chan struct{}
	stopOnce  sync.Once
	workersWG sync.WaitGroup
	playWG    sync.WaitGroup
}

func NewService(cfg Config, injector Injector, clk clock.Clock, logger Logger) (*Service, error) {
	if injector == nil {
		return nil, fmt.Errorf("injector is nil")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	if cfg.RecordCode == cfg.PlayCode || cfg.RecordCode == cfg.CancelCode || cfg.PlayCode == cfg.CancelCode {
		return nil, fmt.Errorf("record, play and cancel codes must be distinct")
	}
	if cfg.DefaultSpeed <= 0 {
		return nil, fmt.Errorf("default speed must be > 0")
	}
	if cfg.DefaultLoops < 1 {
		cfg.DefaultLoops = 1
	}

	return &Service{
		cfg:          cfg,
		injector:     injector,
		clk:          clk,
		logger:       logger,
		log:          NewEventLog(),
		state:        StateIdle,
		defaultSpeed: cfg.DefaultSpeed,
		defaultLoops: cfg.DefaultLoops,
		eventsCh:     make(chan Event, 256),
		stopCh:       make(chan struct{}),
	}, nil
}

func (s *Service) Start() {
	s.workersWG.Add(1)
	go s.eventLoop()
}

// Stop shuts the engine down: the event loop exits, an active playback
// unwinds, and the injector is closed. Safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.playWG.Wait()
		s.workersWG.Wait()
		_ = s.injector.Close()
	})
}

// SubmitEvent hands an adapter notification to the engine. It returns false
// once the engine is stopping so adapter read loops know to exit.
func (s *Service) SubmitEvent(event Event) bool {
	select {
	case <-s.stopCh:
		return false
	case s.eventsCh <- event:
		return true
	}
}

func (s *Service) eventLoop() {
	defer s.workersWG.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case event := <-s.eventsCh:
			s.handleEvent(event)
		}
	}
}

// handleEvent routes one notification according to the current state. A
// hotkey that is not a valid exit from the active state is dropped, which is
// what guarantees two sessions never overlap.
func (s *Service) handleEvent(event Event) {
	switch event.Kind {
	case KindKey:
		if event.Value != 1 {
			return
		}
		switch event.Code {
		case s.cfg.RecordCode:
			if err := s.ToggleRecording(); err != nil {
				s.logger.Debug("Record hotkey ignored", "err", err)
			}
		case s.cfg.PlayCode:
			speed, loops := s.Defaults()
			if err := s.Play(PlaybackParams{Speed: speed, Loops: loops}); err != nil {
				s.logger.Info("Play hotkey ignored", "err", err)
			}
		case s.cfg.CancelCode:
			s.Cancel()
		}
	case KindClick:
		s.handleRecordedClick()
	}
}

// ToggleRecording starts a recording from Idle or stops the active one. While
// playing it reports ErrBusy and changes nothing.
func (s *Service) ToggleRecording() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	switch s.state {
	case StateIdle:
		return s.startRecordingLocked()
	case StateRecording:
		s.stopRecordingLocked()
		return nil
	default:
		return ErrBusy
	}
}

// StartRecording begins a new recording, replacing the current log.
func (s *Service) StartRecording() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state != StateIdle {
		return ErrBusy
	}
	return s.startRecordingLocked()
}

// StopRecording ends the active recording. Calling it while already idle is a
// no-op; calling it during playback reports ErrBusy.
func (s *Service) StopRecording() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	switch s.state {
	case StateRecording:
		s.stopRecordingLocked()
		return nil
	case StateIdle:
		return nil
	default:
		return ErrBusy
	}
}

func (s *Service) startRecordingLocked() error {
	s.log.Clear()
	s.lastEventTime = s.clk.Now()
	s.state = StateRecording
	s.lastErr = nil
	s.logger.Info("Recording started")
	return nil
}

func (s *Service) stopRecordingLocked() {
	// The final recorded click is the user's stop action, not part of the
	// intended macro.
	s.log.TrimLast()
	s.state = StateIdle
	s.logger.Info("Recording stopped", "events", s.log.Len())
}

// handleRecordedClick appends one click to the log while recording. Clicks
// arriving in any other state are dropped.
func (s *Service) handleRecordedClick() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state != StateRecording {
		return
	}

	x, y, err := s.injector.Position()
	if err != nil {
		s.lastErr = fmt.Errorf("read pointer position: %w", err)
		s.state = StateIdle
		s.logger.Error("Recording aborted", "err", err)
		return
	}

	now := s.clk.Now()
	delay := now.Sub(s.lastEventTime).Seconds()
	s.lastEventTime = now
	s.log.Append(ClickEvent{X: x, Y: y, DelayBefore: delay})
	s.logger.Debug("Recorded click", "x", x, "y", y, "delay", delay)
}

// Play starts a playback session over a snapshot of the current log.
func (s *Service) Play(params PlaybackParams) error {
	if params.Speed <= 0 {
		return ErrInvalidSpeed
	}
	if params.Loops < 1 {
		params.Loops = 1
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state != StateIdle {
		return ErrBusy
	}
	snapshot := s.log.Snapshot()
	if len(snapshot) == 0 {
		return ErrEmptyMacro
	}

	cancelCh := make(chan struct{})
	s.cancelCh = cancelCh
	s.state = StatePlaying
	s.lastErr = nil
	s.playWG.Add(1)
	go s.runPlayback(snapshot, params, cancelCh)
	s.logger.Info("Playback started", "events", len(snapshot), "speed", params.Speed, "loops", params.Loops)
	return nil
}

// Cancel stops whichever session is active. During playback it trips the
// one-way cancellation flag and the session unwinds to Idle on its own;
// during recording it behaves exactly like the stop-recording toggle. Idle is
// a no-op.
func (s *Service) Cancel() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	switch s.state {
	case StatePlaying:
		if s.cancelCh != nil {
			close(s.cancelCh)
			s.cancelCh = nil
			s.logger.Info("Playback cancel requested")
		}
	case StateRecording:
		s.stopRecordingLocked()
	}
}

// UpdateDelay edits the delay of one recorded event. Only accepted while idle.
func (s *Service) UpdateDelay(index int, delay float64) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state != StateIdle {
		return ErrBusy
	}
	return s.log.UpdateDelay(index, delay)
}

// DeleteAt removes one recorded event. Only accepted while idle.
func (s *Service) DeleteAt(index int) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state != StateIdle {
		return ErrBusy
	}
	return s.log.DeleteAt(index)
}

// Clear drops the whole macro. Only accepted while idle.
func (s *Service) Clear() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state != StateIdle {
		return ErrBusy
	}
	s.log.Clear()
	return nil
}

func (s *Service) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Events returns a snapshot of the current macro.
func (s *Service) Events() []ClickEvent {
	return s.log.Snapshot()
}

// LastError reports the most recent asynchronous session failure, or nil.
// Starting a new session resets it.
func (s *Service) LastError() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastErr
}

// SetDefaults updates the speed and loop count used when playback is started
// from the play hotkey.
func (s *Service) SetDefaults(speed float64, loops int) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}
	if loops < 1 {
		loops = 1
	}
	s.stateMu.Lock()
	s.defaultSpeed = speed
	s.defaultLoops = loops
	s.stateMu.Unlock()
	return nil
}

func (s *Service) Defaults() (speed float64, loops int) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.defaultSpeed, s.defaultLoops
}

func (s *Service) setLastErr(err error) {
	s.stateMu.Lock()
	s.lastErr = err
	s.stateMu.Unlock()
}

func (s *Service) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}
