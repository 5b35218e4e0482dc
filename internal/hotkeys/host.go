// Package hotkeys owns the OS input side of the magnifier: global hotkey
// registration, the low-level mouse hook and the thread message loop that
// feeds both into the dispatch engine.
package hotkeys

import (
	"errors"
	"sync"

	"github.com/waneon/windows-magnifier/internal/dispatch"
)

// ErrUnsupported is returned on platforms without global hotkeys.
var ErrUnsupported = errors.New("global hotkeys are not supported on this platform")

// Handler consumes input on the host thread. *dispatch.Engine satisfies it.
type Handler interface {
	HandlePointer(ev dispatch.PointerEvent) bool
	Step(ev dispatch.Event) (done bool, err error)
}

// StartFunc runs on the host thread before the message loop starts. It
// returns the handler and an optional cleanup that also runs on the host
// thread after the loop exits.
type StartFunc func() (Handler, func(), error)

// fifo holds events posted to the host until their doorbell message is
// pumped. Each doorbell pops exactly one event so posted events keep their
// order relative to OS hotkey messages.
type fifo struct {
	mu     sync.Mutex
	events []dispatch.Event
	ring   func() error // nil while the message loop is not running
}

// push appends ev and rings its doorbell under the same lock. When ring
// fails the event is removed again. Events pushed before arm are kept and
// rung when the loop starts.
func (q *fifo) push(ev dispatch.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
	if q.ring == nil {
		return nil
	}
	if err := q.ring(); err != nil {
		n := len(q.events)
		q.events[n-1] = nil
		q.events = q.events[:n-1]
		return err
	}
	return nil
}

// arm installs the doorbell and rings once per event already queued.
func (q *fifo) arm(ring func() error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ring = ring
	for range q.events {
		if err := ring(); err != nil {
			return err
		}
	}
	return nil
}

func (q *fifo) disarm() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ring = nil
}

func (q *fifo) pop() (dispatch.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil, false
	}
	ev := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return ev, true
}

func (q *fifo) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
