// Package workerutil runs background goroutines that must survive panics,
// such as the config file watcher.
package workerutil

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxRetries     = 10
)

// RecoveryOptions configures RunWithRecovery. Zero values select the
// defaults (100ms initial backoff, 5s max backoff, 10 attempts).
type RecoveryOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxRetries bounds the number of attempts. 1 means run once.
	MaxRetries int

	// OnFatal is called once when the worker is abandoned after MaxRetries
	// failed attempts. May be nil.
	OnFatal func(worker string, lastErr error)
}

func (opts RecoveryOptions) applyDefaults() RecoveryOptions {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		slog.Warn("[DEBUG-WORKER] MaxBackoff < InitialBackoff, using InitialBackoff as MaxBackoff",
			"initialBackoff", opts.InitialBackoff, "maxBackoff", opts.MaxBackoff)
		opts.MaxBackoff = opts.InitialBackoff
	}
	return opts
}

// RunWithRecovery launches fn in a goroutine tracked by wg. A panic or a
// non-nil error from fn restarts it with exponential backoff; a nil return
// or a cancelled ctx ends the worker.
func RunWithRecovery(ctx context.Context, name string, wg *sync.WaitGroup, fn func(ctx context.Context) error, opts RecoveryOptions) {
	opts = opts.applyDefaults()
	wg.Go(func() {
		runRecoveryLoop(ctx, name, fn, opts)
	})
}

func runRecoveryLoop(ctx context.Context, name string, fn func(ctx context.Context) error, opts RecoveryOptions) {
	delay := opts.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		lastErr = runOnce(ctx, name, fn)
		if lastErr == nil || ctx.Err() != nil {
			return
		}
		slog.Warn("[DEBUG-WORKER] worker failed",
			"worker", name, "attempt", attempt, "restartDelay", delay, "error", lastErr)
		if attempt == opts.MaxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = nextBackoff(delay, opts.MaxBackoff)
	}

	slog.Error("[DEBUG-WORKER] worker exceeded max retries, giving up",
		"worker", name, "maxRetries", opts.MaxRetries, "error", lastErr)
	if opts.OnFatal != nil {
		opts.OnFatal(name, lastErr)
	}
}

func runOnce(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] background goroutine recovered from panic",
				"worker", name, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// nextBackoff doubles current, capping at maxBackoff and guarding overflow.
func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	next := current * 2
	if next > maxBackoff || next < current {
		return maxBackoff
	}
	return next
}
