package macro

import (
	"fmt"
	"time"
)

// runPlayback replays the snapshot for the requested number of passes and
// returns the engine to Idle, whether it completed, was cancelled, or failed.
// It owns no shared state beyond the snapshot; the log is never touched.
func (s *Service) runPlayback(events []ClickEvent, params PlaybackParams, cancelCh <-chan struct{}) {
	defer s.playWG.Done()

	clicks := 0
	completed := s.playPasses(events, params, cancelCh, &clicks)

	s.stateMu.Lock()
	s.state = StateIdle
	s.cancelCh = nil
	s.stateMu.Unlock()

	if completed {
		s.logger.Info("Playback finished", "clicks", clicks)
	} else {
		s.logger.Info("Playback stopped", "clicks", clicks)
	}
}

func (s *Service) playPasses(events []ClickEvent, params PlaybackParams, cancelCh <-chan struct{}, clicks *int) bool {
	for pass := 0; pass < params.Loops; pass++ {
		for _, event := range events {
			if !s.waitPlayback(scaledDelay(event.DelayBefore, params.Speed), cancelCh) {
				return false
			}
			if s.cancelled(cancelCh) {
				return false
			}
			if err := s.injector.MoveClick(event.X, event.Y); err != nil {
				s.setLastErr(fmt.Errorf("inject click: %w", err))
				s.logger.Error("Playback aborted", "err", err)
				return false
			}
			*clicks++
		}
	}
	return true
}

// waitPlayback sleeps for one scaled inter-click delay. The wait races the
// cancellation flag and engine shutdown, so cancelling interrupts it
// immediately instead of after the remaining recorded delay.
func (s *Service) waitPlayback(d time.Duration, cancelCh <-chan struct{}) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-s.stopCh:
		return false
	case <-cancelCh:
		return false
	case <-s.clk.After(d):
		return true
	}
}

func (s *Service) cancelled(cancelCh <-chan struct{}) bool {
	select {
	case <-s.stopCh:
		return true
	case <-cancelCh:
		return true
	default:
		return false
	}
}

// scaledDelay converts a recorded delay to the effective wait at the given
// speed multiplier. Negative stored delays count as zero.
func scaledDelay(delayBefore, speed float64) time.Duration {
	if delayBefore <= 0 {
		return 0
	}
	return time.Duration(delayBefore / speed * float64(time.Second))
}
