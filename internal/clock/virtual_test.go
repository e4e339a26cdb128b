package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestVirtualClock_Now(t *testing.T) {
	vc := NewVirtualClock(epoch)
	if got := vc.Now(); !got.Equal(epoch) {
		t.Errorf("Now() = %v, want %v", got, epoch)
	}
}

func TestVirtualClock_Advance(t *testing.T) {
	vc := NewVirtualClock(epoch)
	vc.Advance(5 * time.Minute)

	want := epoch.Add(5 * time.Minute)
	if got := vc.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestVirtualClock_AdvanceNegativePanics(t *testing.T) {
	vc := NewVirtualClock(epoch)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on negative advance")
		}
	}()
	vc.Advance(-1 * time.Second)
}

func TestVirtualClock_Since(t *testing.T) {
	vc := NewVirtualClock(epoch)
	start := vc.Now()
	vc.Advance(10 * time.Second)

	got := vc.Since(start)
	if want := 10 * time.Second; got != want {
		t.Errorf("Since() = %v, want %v", got, want)
	}
}

func TestVirtualClock_After_FiresOnAdvance(t *testing.T) {
	vc := NewVirtualClock(epoch)
	ch := vc.After(5 * time.Second)

	select {
	case <-ch:
		t.Fatal("After() fired before advance")
	default:
	}

	vc.Advance(5 * time.Second)

	select {
	case got := <-ch:
		want := epoch.Add(5 * time.Second)
		if !got.Equal(want) {
			t.Errorf("After() sent %v, want %v", got, want)
		}
	default:
		t.Fatal("After() did not fire after advance")
	}
}

func TestVirtualClock_After_ZeroFiresImmediately(t *testing.T) {
	vc := NewVirtualClock(epoch)

	select {
	case <-vc.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestVirtualClock_Set(t *testing.T) {
	vc := NewVirtualClock(epoch)
	target := epoch.Add(24 * time.Hour)
	vc.Set(target)

	if got := vc.Now(); !got.Equal(target) {
		t.Errorf("Now() after Set = %v, want %v", got, target)
	}
}

func TestVirtualClock_SetPastPanics(t *testing.T) {
	vc := NewVirtualClock(epoch)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on setting time to the past")
		}
	}()
	vc.Set(epoch.Add(-1 * time.Hour))
}
