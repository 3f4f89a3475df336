package broadcast

import (
	"sync"

	"github.com/google/uuid"
)

const defaultBufferSize = 1024

// Registry maps listener ids to open listeners. It is safe for concurrent use.
type Registry struct {
	mtx        sync.RWMutex
	listeners  map[string]*Listener
	bufferSize int
}

// NewRegistry returns an empty registry whose listeners buffer up to
// bufferSize chunks each.
func NewRegistry(bufferSize int) *Registry {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &Registry{
		listeners:  make(map[string]*Listener),
		bufferSize: bufferSize,
	}
}

// Register allocates a new listener with a fresh id and adds it to the registry.
func (r *Registry) Register() *Listener {
	l := newListener(uuid.NewString(), r.bufferSize)

	r.mtx.Lock()
	r.listeners[l.ID] = l
	r.mtx.Unlock()

	return l
}

// Unregister removes and closes the listener with the given id. Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mtx.Lock()
	l, ok := r.listeners[id]
	delete(r.listeners, id)
	r.mtx.Unlock()

	if ok {
		_ = l.Close()
	}
}

// DeliverAll writes chunk to every listener registered when the call begins.
// Listeners registered while the cycle is running first see the next chunk.
// Listeners rejecting the write are closed and removed before DeliverAll
// returns. The chunk is shared between listeners and must not be modified.
func (r *Registry) DeliverAll(chunk []byte) (delivered, pruned int) {
	r.mtx.RLock()
	snapshot := make([]*Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		snapshot = append(snapshot, l)
	}
	r.mtx.RUnlock()

	var failed []*Listener
	for _, l := range snapshot {
		if _, err := l.Write(chunk); err != nil {
			failed = append(failed, l)
			continue
		}
		delivered++
	}

	if len(failed) == 0 {
		return delivered, 0
	}

	r.mtx.Lock()
	for _, l := range failed {
		// Only remove the entry if it still points at the listener that failed.
		if cur, ok := r.listeners[l.ID]; ok && cur == l {
			delete(r.listeners, l.ID)
			pruned++
		}
	}
	r.mtx.Unlock()

	for _, l := range failed {
		_ = l.Close()
	}

	return delivered, pruned
}

// Has reports whether id is currently registered.
func (r *Registry) Has(id string) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	_, ok := r.listeners[id]
	return ok
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.listeners)
}

// CloseAll closes and removes every listener.
func (r *Registry) CloseAll() {
	r.mtx.Lock()
	listeners := r.listeners
	r.listeners = make(map[string]*Listener)
	r.mtx.Unlock()

	for _, l := range listeners {
		_ = l.Close()
	}
}
