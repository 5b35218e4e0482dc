package workerutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func fastOptions(maxRetries int) RecoveryOptions {
	return RecoveryOptions{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		MaxRetries:     maxRetries,
	}
}

func TestRunWithRecoveryNormalExit(t *testing.T) {
	var wg sync.WaitGroup
	var calls atomic.Int32
	var fatal atomic.Int32
	opts := fastOptions(3)
	opts.OnFatal = func(string, error) { fatal.Add(1) }

	RunWithRecovery(context.Background(), "normal", &wg, func(context.Context) error {
		calls.Add(1)
		return nil
	}, opts)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("fn called %d times, want 1", calls.Load())
	}
	if fatal.Load() != 0 {
		t.Errorf("OnFatal called %d times, want 0", fatal.Load())
	}
}

func TestRunWithRecoveryRestartsAfterPanic(t *testing.T) {
	var wg sync.WaitGroup
	var calls atomic.Int32

	RunWithRecovery(context.Background(), "panicky", &wg, func(context.Context) error {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return nil
	}, fastOptions(3))
	wg.Wait()

	if calls.Load() != 2 {
		t.Fatalf("fn called %d times, want 2", calls.Load())
	}
}

func TestRunWithRecoveryGivesUp(t *testing.T) {
	var wg sync.WaitGroup
	var calls atomic.Int32
	var fatalErr error
	var fatalName string
	opts := fastOptions(3)
	opts.OnFatal = func(name string, err error) {
		fatalName, fatalErr = name, err
	}
	watchErr := errors.New("watch failed")

	RunWithRecovery(context.Background(), "config-watcher", &wg, func(context.Context) error {
		calls.Add(1)
		return watchErr
	}, opts)
	wg.Wait()

	if calls.Load() != 3 {
		t.Errorf("fn called %d times, want 3", calls.Load())
	}
	if fatalName != "config-watcher" || !errors.Is(fatalErr, watchErr) {
		t.Errorf("OnFatal(%q, %v), want (config-watcher, %v)", fatalName, fatalErr, watchErr)
	}
}

func TestRunWithRecoveryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var fatal atomic.Int32
	opts := RecoveryOptions{InitialBackoff: time.Hour, MaxBackoff: time.Hour, MaxRetries: 5}
	opts.OnFatal = func(string, error) { fatal.Add(1) }

	started := make(chan struct{})
	RunWithRecovery(ctx, "cancelled", &wg, func(context.Context) error {
		close(started)
		return errors.New("fail once")
	}, opts)
	<-started
	cancel()
	wg.Wait()

	if fatal.Load() != 0 {
		t.Errorf("OnFatal called %d times after cancel, want 0", fatal.Load())
	}
}

func TestApplyDefaults(t *testing.T) {
	opts := RecoveryOptions{}.applyDefaults()
	if opts.InitialBackoff != defaultInitialBackoff || opts.MaxBackoff != defaultMaxBackoff || opts.MaxRetries != defaultMaxRetries {
		t.Fatalf("applyDefaults() = %+v", opts)
	}
	swapped := RecoveryOptions{InitialBackoff: time.Second, MaxBackoff: time.Millisecond}.applyDefaults()
	if swapped.MaxBackoff != time.Second {
		t.Fatalf("MaxBackoff = %v, want 1s", swapped.MaxBackoff)
	}
}

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		current, max, want time.Duration
	}{
		{100 * time.Millisecond, time.Second, 200 * time.Millisecond},
		{600 * time.Millisecond, time.Second, time.Second},
		{time.Second, time.Second, time.Second},
		{0, time.Second, defaultInitialBackoff},
		{time.Duration(1 << 62), time.Duration(1<<63 - 1), time.Duration(1<<63 - 1)},
	}
	for _, tt := range tests {
		if got := nextBackoff(tt.current, tt.max); got != tt.want {
			t.Errorf("nextBackoff(%v, %v) = %v, want %v", tt.current, tt.max, got, tt.want)
		}
	}
}
