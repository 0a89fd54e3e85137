package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_NewTicker(t *testing.T) {
	clock := RealClock{}
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Error("ticker did not fire")
	}
}

func TestMockClock_SleepAdvancesTime(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Sleep(10 * time.Millisecond)
	clock.Sleep(10 * time.Millisecond)

	if got := clock.Now().Sub(start); got != 20*time.Millisecond {
		t.Errorf("expected clock to advance 20ms, got %v", got)
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 2 {
		t.Errorf("expected 2 recorded sleeps, got %d", len(sleeps))
	}
}

func TestMockClock_OnSleepHook(t *testing.T) {
	clock := NewMockClock(time.Time{})
	var calls []int
	clock.OnSleep = func(n int) { calls = append(calls, n) }

	clock.Sleep(time.Millisecond)
	clock.Sleep(time.Millisecond)

	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("expected hook calls [1 2], got %v", calls)
	}
}

func TestMockTicker_FiresOnAdvance(t *testing.T) {
	clock := NewMockClock(time.Time{})
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	clock.Advance(500 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired early")
	default:
	}

	clock.Advance(500 * time.Millisecond)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after interval")
	}
}

func TestMockTicker_StopSuppressesTicks(t *testing.T) {
	clock := NewMockClock(time.Time{})
	ticker := clock.NewTicker(time.Second)
	ticker.Stop()

	clock.Advance(2 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
