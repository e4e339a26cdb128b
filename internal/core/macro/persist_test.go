package macro

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"macrorec/internal/clock"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())

	original := []ClickEvent{
		{X: 100, Y: 200, DelayBefore: 0},
		{X: 300, Y: 400, DelayBefore: 0.75},
		{X: -5, Y: 0, DelayBefore: 2},
	}
	s.log.Replace(original)

	path := filepath.Join(t.TempDir(), "macro.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	s.log.Clear()
	if err := s.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	events := s.Events()
	if len(events) != len(original) {
		t.Fatalf("len(events) = %d, want %d", len(events), len(original))
	}
	for i := range original {
		if events[i] != original[i] {
			t.Errorf("events[%d] = %+v, want %+v", i, events[i], original[i])
		}
	}
}

func TestSaveCreatesParentDirs(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())
	s.log.Append(ClickEvent{X: 1, Y: 2})

	path := filepath.Join(t.TempDir(), "nested", "dir", "macro.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
}

func TestLoadUnsupportedVersionLeavesMacroUntouched(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())
	s.log.Append(ClickEvent{X: 1, Y: 2, DelayBefore: 0.5})

	path := filepath.Join(t.TempDir(), "macro.json")
	payload := `{"version": 2, "events": [{"x": 9, "y": 9, "delay_before": 0}]}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Load(path); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("Load() error = %v, want ErrUnsupportedVersion", err)
	}
	events := s.Events()
	if len(events) != 1 || events[0].X != 1 {
		t.Fatalf("macro changed on failed load: %#v", events)
	}
}

func TestLoadMissingFile(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())

	err := s.Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Load() error = nil, want read failure")
	}
}

func TestLoadRejectedWhileRecording(t *testing.T) {
	injector := &fakeInjector{}
	s := newTestService(t, injector, clock.NewRealClock())

	path := filepath.Join(t.TempDir(), "macro.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}

	if err := s.Load(path); !errors.Is(err, ErrBusy) {
		t.Fatalf("Load() error = %v, want ErrBusy", err)
	}
	if err := s.Save(path); !errors.Is(err, ErrBusy) {
		t.Fatalf("Save() error = %v, want ErrBusy", err)
	}
}

func TestDecodeMacro(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr error
	}{
		{
			name:    "not json",
			payload: `{{{`,
			wantErr: ErrMalformedFile,
		},
		{
			name:    "missing version",
			payload: `{"events": []}`,
			wantErr: ErrMalformedFile,
		},
		{
			name:    "missing events",
			payload: `{"version": 1}`,
			wantErr: ErrMalformedFile,
		},
		{
			name:    "wrong field type",
			payload: `{"version": 1, "events": [{"x": "ten", "y": 2, "delay_before": 0}]}`,
			wantErr: ErrMalformedFile,
		},
		{
			name:    "incomplete event",
			payload: `{"version": 1, "events": [{"x": 1, "y": 2}]}`,
			wantErr: ErrMalformedFile,
		},
		{
			// Version check runs before event validation.
			name:    "future version wins over bad events",
			payload: `{"version": 7, "events": [{"x": 1}]}`,
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "empty events ok",
			payload: `{"version": 1, "events": []}`,
		},
		{
			name:    "valid",
			payload: `{"version": 1, "events": [{"x": 1, "y": 2, "delay_before": 0.5}]}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeMacro([]byte(tc.payload))
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("DecodeMacro() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("DecodeMacro() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestDecodeMacroClampsNegativeDelay(t *testing.T) {
	payload := `{"version": 1, "events": [{"x": 1, "y": 2, "delay_before": -4.5}]}`
	events, err := DecodeMacro([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeMacro() error = %v", err)
	}
	if events[0].DelayBefore != 0 {
		t.Fatalf("DelayBefore = %v, want 0", events[0].DelayBefore)
	}
}
