package session

import (
	"context"
	"sync"
)

// Loop is the task queue of a session. Posted tasks run on the session goroutine
// between input events.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

func NewLoop(buf int) *Loop {
	if buf <= 0 {
		buf = 64
	}
	return &Loop{tasks: make(chan func(), buf), done: make(chan struct{})}
}

// Post queues fn and reports whether it was accepted. It blocks while the queue is
// full, so it must not be called from the loop itself with a full queue.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if !l.Post(func() { defer close(ran); fn() }) {
		return ErrClosed
	}
	select {
	case <-ran:
		return nil
	case <-l.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the session goroutine has exited.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) close() { l.once.Do(func() { close(l.done) }) }
