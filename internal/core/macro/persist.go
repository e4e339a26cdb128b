package macro

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileVersion is the macro file format version this build reads and writes.
const FileVersion = 1

// Pointer fields so missing keys are distinguishable from zero values.
type macroFile struct {
	Version *int         `json:"version"`
	Events  *[]fileEvent `json:"events"`
}

type fileEvent struct {
	X           *int     `json:"x"`
	Y           *int     `json:"y"`
	DelayBefore *float64 `json:"delay_before"`
}

// DecodeMacro parses a macro file payload. Unknown versions are rejected
// before the events are validated; any missing or wrong-typed field makes the
// whole file malformed. Negative stored delays are clamped to zero.
func DecodeMacro(data []byte) ([]ClickEvent, error) {
	var file macroFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	if file.Version == nil {
		return nil, fmt.Errorf("%w: missing version", ErrMalformedFile)
	}
	if *file.Version != FileVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, *file.Version, FileVersion)
	}
	if file.Events == nil {
		return nil, fmt.Errorf("%w: missing events", ErrMalformedFile)
	}

	events := make([]ClickEvent, 0, len(*file.Events))
	for i, item := range *file.Events {
		if item.X == nil || item.Y == nil || item.DelayBefore == nil {
			return nil, fmt.Errorf("%w: event %d is incomplete", ErrMalformedFile, i)
		}
		delay := *item.DelayBefore
		if delay < 0 {
			delay = 0
		}
		events = append(events, ClickEvent{X: *item.X, Y: *item.Y, DelayBefore: delay})
	}
	return events, nil
}

// EncodeMacro serializes events in the versioned macro file format.
func EncodeMacro(events []ClickEvent) ([]byte, error) {
	fileEvents := make([]fileEvent, len(events))
	for i := range events {
		event := events[i]
		fileEvents[i] = fileEvent{X: &event.X, Y: &event.Y, DelayBefore: &event.DelayBefore}
	}
	version := FileVersion
	data, err := json.MarshalIndent(macroFile{Version: &version, Events: &fileEvents}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Load replaces the current macro with the contents of a saved file. Only
// accepted while idle; on any failure the in-memory macro is left untouched.
func (s *Service) Load(path string) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state != StateIdle {
		return ErrBusy
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read macro file: %w", err)
	}
	events, err := DecodeMacro(data)
	if err != nil {
		return err
	}

	s.log.Replace(events)
	s.logger.Info("Macro loaded", "path", path, "events", len(events))
	return nil
}

// Save writes the current macro to path. The file is written to a temporary
// sibling first and renamed into place, so a failed save leaves any prior
// file untouched.
func (s *Service) Save(path string) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state != StateIdle {
		return ErrBusy
	}

	data, err := EncodeMacro(s.log.Snapshot())
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create macro dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write macro file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("persist macro file: %w", err)
	}

	s.logger.Info("Macro saved", "path", path, "events", s.log.Len())
	return nil
}
