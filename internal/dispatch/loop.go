package dispatch

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by ChanQueue.Post when the buffer is exhausted.
var ErrQueueFull = errors.New("dispatch queue is full")

const defaultQueueSize = 256

// ChanQueue is a buffered single-consumer queue. Any goroutine may Post;
// only Run consumes.
type ChanQueue struct {
	ch chan Event
}

// NewChanQueue creates a queue; size <= 0 selects the default capacity.
func NewChanQueue(size int) *ChanQueue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &ChanQueue{ch: make(chan Event, size)}
}

// Post enqueues ev without blocking.
func (q *ChanQueue) Post(ev Event) error {
	select {
	case q.ch <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len returns the number of pending events.
func (q *ChanQueue) Len() int { return len(q.ch) }

// Run consumes q strictly in arrival order until an exit action executes,
// a step fails, or ctx is cancelled. Events still queued after exit are
// left unprocessed.
func Run(ctx context.Context, e *Engine, q *ChanQueue) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-q.ch:
			done, err := e.Step(ev)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}
