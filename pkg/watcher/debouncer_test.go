package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { count.Add(1) })
	}

	time.Sleep(100 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncerRunsLatestCallback(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var got atomic.Int32
	d.Trigger(func() { got.Store(1) })
	d.Trigger(func() { got.Store(2) })

	time.Sleep(100 * time.Millisecond)
	if got.Load() != 2 {
		t.Errorf("got = %d, want the most recent callback to run", got.Load())
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var count atomic.Int32
	d.Trigger(func() { count.Add(1) })
	d.Cancel()

	time.Sleep(100 * time.Millisecond)
	if got := count.Load(); got != 0 {
		t.Errorf("callback ran %d times after Cancel, want 0", got)
	}
}

func TestDebouncerZeroWindowDefaults(t *testing.T) {
	d := NewDebouncer(0)
	if d.Window() != DefaultDebounce {
		t.Errorf("Window() = %v, want %v", d.Window(), DefaultDebounce)
	}
}

func TestMonitorFiresOnReconnect(t *testing.T) {
	m := NewMonitor([]string{"github.com"},
		WithProbeInterval(10*time.Millisecond),
		WithProbeTimeout(10*time.Millisecond))
	m.debounce = NewDebouncer(5 * time.Millisecond)

	// Offline for the first probes, then online.
	var probes atomic.Int32
	m.dial = func(ctx context.Context, host string) error {
		if probes.Add(1) <= 3 {
			return errors.New("network unreachable")
		}
		return nil
	}

	reconnected := make(chan struct{}, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go m.Run(ctx, func() {
		select {
		case reconnected <- struct{}{}:
		default:
		}
	})

	select {
	case <-reconnected:
	case <-ctx.Done():
		t.Fatal("reconnect callback never fired")
	}

	if !m.Online() {
		t.Error("Online() = false after reconnect")
	}
}

func TestMonitorInitialOnlineDoesNotFire(t *testing.T) {
	m := NewMonitor([]string{"github.com"},
		WithProbeInterval(10*time.Millisecond),
		WithProbeTimeout(10*time.Millisecond))

	m.dial = func(ctx context.Context, host string) error { return nil }

	var fired atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	m.Run(ctx, func() { fired.Add(1) })

	if got := fired.Load(); got != 0 {
		t.Errorf("callback fired %d times on steady online state, want 0", got)
	}
}

func TestMonitorNoHostsTreatedAsOffline(t *testing.T) {
	m := NewMonitor(nil)
	if m.probe(context.Background()) {
		t.Error("probe() with no hosts = true, want false")
	}
}
