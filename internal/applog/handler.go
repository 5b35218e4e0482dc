// Package applog builds the process logger. The magnifier has no console, so
// records go to a file and warnings are teed to a collector that the host can
// show to the user.
package applog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
)

// EntryCallback is invoked for each record at or above the tee threshold.
type EntryCallback func(record slog.Record)

// TeeHandler wraps a base [slog.Handler] and tees records at or above minLevel
// to a callback. All records are forwarded to the base handler regardless of
// level; only the callback invocation is gated by minLevel.
type TeeHandler struct {
	base     slog.Handler
	callback EntryCallback
	minLevel slog.Level
}

// NewTeeHandler creates a TeeHandler. A nil callback only delegates.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback EntryCallback) *TeeHandler {
	return &TeeHandler{
		base:     base,
		callback: callback,
		minLevel: minLevel,
	}
}

// Enabled lets the base handler decide visibility, except that records the
// callback wants are always enabled.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.callback != nil && level >= h.minLevel {
		return true
	}
	return h.base.Enabled(ctx, level)
}

// Handle forwards the record to the base handler, then invokes the callback
// when the record meets minLevel. A panicking callback is reported to stderr
// so it cannot recurse into the logger.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	var err error
	if h.base.Enabled(ctx, record.Level) {
		err = h.base.Handle(ctx, record)
	}

	if h.callback != nil && record.Level >= h.minLevel {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "[applog] callback panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.callback(record.Clone())
		}()
	}
	return err
}

// WithAttrs applies attrs to the base handler only; the callback sees the
// record's own attributes.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &TeeHandler{base: h.base.WithAttrs(attrs), callback: h.callback, minLevel: h.minLevel}
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &TeeHandler{base: h.base.WithGroup(name), callback: h.callback, minLevel: h.minLevel}
}

// maxCollected caps the messages a Collector keeps between consumes.
const maxCollected = 64

// Collector accumulates teed records as one-line messages. Once Stop is
// called it drops every further record.
type Collector struct {
	mu       sync.Mutex
	messages []string
	dropped  int
	stopped  bool
}

// Record is an EntryCallback.
func (c *Collector) Record(record slog.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if len(c.messages) >= maxCollected {
		c.dropped++
		return
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(stripAreaTag(record.Message)))
	record.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	c.messages = append(c.messages, b.String())
}

// Consume returns and clears the collected messages. Records dropped at the
// cap are summarized in a final line.
func (c *Collector) Consume() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.messages
	if c.dropped > 0 {
		out = append(out, fmt.Sprintf("... %d more warnings in the log file", c.dropped))
	}
	c.messages = nil
	c.dropped = 0
	return out
}

// Stop discards pending messages and ignores later records.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.messages = nil
	c.dropped = 0
}

// stripAreaTag drops a leading "[WARN-CONFIG]" style tag meant for log files.
func stripAreaTag(msg string) string {
	if strings.HasPrefix(msg, "[") {
		if end := strings.IndexByte(msg, ']'); end > 0 {
			return msg[end+1:]
		}
	}
	return msg
}

// Open creates the log file next to the config file and returns a logger that
// writes level and above to it, teeing warnings to collector. The returned
// closer closes the file.
func Open(path string, level slog.Level, collector *Collector) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return New(file, level, collector), file, nil
}

// New returns a text logger on w that tees warnings to collector (may be nil).
func New(w io.Writer, level slog.Level, collector *Collector) *slog.Logger {
	base := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	var cb EntryCallback
	if collector != nil {
		cb = collector.Record
	}
	return slog.New(NewTeeHandler(base, slog.LevelWarn, cb))
}
