package broadcast

import (
	"errors"
	"io"
	"sync"
)

// ErrStalled is returned by Write when the listener has not drained its buffer.
var ErrStalled = errors.New("listener buffer full")

// Listener is a single consumer of the broadcast. Chunks written to it are
// queued on a bounded channel which the consumer drains through C.
type Listener struct {
	ID string

	sync.Mutex
	dataChan chan []byte
	closed   bool
}

func newListener(id string, size int) *Listener {
	if size < 1 {
		size = 1
	}

	return &Listener{
		ID:       id,
		dataChan: make(chan []byte, size),
	}
}

// C returns the channel carrying chunks for this listener. It is closed when
// the listener is unregistered or pruned.
func (l *Listener) C() <-chan []byte {
	return l.dataChan
}

// Write queues p for the listener without blocking. The slice is not copied,
// so callers must not modify it afterwards.
func (l *Listener) Write(p []byte) (n int, err error) {
	l.Lock()
	defer l.Unlock()

	if l.closed {
		return 0, io.ErrClosedPipe
	}

	select {
	case l.dataChan <- p:
		return len(p), nil
	default:
		return 0, ErrStalled
	}
}

// Close stops the listener from accepting writes. Chunks already queued stay
// readable from C. Close is idempotent.
func (l *Listener) Close() error {
	l.Lock()
	defer l.Unlock()

	if !l.closed {
		close(l.dataChan)
		l.closed = true
	}

	return nil
}

// Closed reports whether the listener still accepts writes.
func (l *Listener) Closed() bool {
	l.Lock()
	defer l.Unlock()
	return l.closed
}
