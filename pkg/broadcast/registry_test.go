package broadcast

import (
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(l *Listener) [][]byte {
	var out [][]byte
	for {
		select {
		case b, ok := <-l.C():
			if !ok {
				return out
			}
			out = append(out, b)
		default:
			return out
		}
	}
}

func TestRegistry_DeliverSingle(t *testing.T) {
	r := NewRegistry(8)
	a := r.Register()

	delivered, pruned := r.DeliverAll([]byte("hello"))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 0, pruned)

	got := drain(a)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", string(got[0]))
}

func TestRegistry_DeliverEveryListenerOnce(t *testing.T) {
	r := NewRegistry(8)

	var listeners []*Listener
	for i := 0; i < 25; i++ {
		listeners = append(listeners, r.Register())
	}

	delivered, _ := r.DeliverAll([]byte("chunk"))
	assert.Equal(t, 25, delivered)

	for _, l := range listeners {
		got := drain(l)
		require.Len(t, got, 1, "listener %s", l.ID)
		assert.Equal(t, "chunk", string(got[0]))
	}
}

func TestRegistry_PrunesClosedListener(t *testing.T) {
	r := NewRegistry(8)
	a := r.Register()
	b := r.Register()

	require.NoError(t, a.Close())

	delivered, pruned := r.DeliverAll([]byte("x"))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, pruned)

	assert.False(t, r.Has(a.ID))
	assert.True(t, r.Has(b.ID))
	assert.Equal(t, 1, r.Len())

	got := drain(b)
	require.Len(t, got, 1)
	assert.Equal(t, "x", string(got[0]))
}

func TestRegistry_PrunesStalledListener(t *testing.T) {
	r := NewRegistry(2)
	slow := r.Register()
	fast := r.Register()

	for i := 0; i < 3; i++ {
		r.DeliverAll([]byte{byte(i)})
		drain(fast)
	}

	assert.False(t, r.Has(slow.ID))
	assert.True(t, r.Has(fast.ID))
	assert.True(t, slow.Closed())

	// Chunks queued before the listener stalled are still readable.
	assert.Len(t, drain(slow), 2)
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry(8)
	a := r.Register()

	r.Unregister(a.ID)
	r.Unregister(a.ID)
	r.Unregister("missing")

	assert.Equal(t, 0, r.Len())
	assert.True(t, a.Closed())

	_, ok := <-a.C()
	assert.False(t, ok)
}

func TestRegistry_UniqueIDs(t *testing.T) {
	r := NewRegistry(1)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		l := r.Register()
		require.False(t, seen[l.ID])
		seen[l.ID] = true
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry(8)
	a := r.Register()
	b := r.Register()

	r.CloseAll()

	assert.Equal(t, 0, r.Len())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}

func TestRegistry_ConcurrentRegisterAndDeliver(t *testing.T) {
	r := NewRegistry(4096)

	var delivering, registering sync.WaitGroup
	stop := make(chan struct{})

	delivering.Add(1)
	go func() {
		defer delivering.Done()
		for {
			select {
			case <-stop:
				return
			default:
				r.DeliverAll([]byte("tick"))
			}
		}
	}()

	for i := 0; i < 4; i++ {
		registering.Add(1)
		go func() {
			defer registering.Done()
			for j := 0; j < 200; j++ {
				l := r.Register()
				r.Unregister(l.ID)
			}
		}()
	}

	registering.Wait()
	close(stop)
	delivering.Wait()

	assert.Equal(t, 0, r.Len())
}

func TestListener_WriteAfterClose(t *testing.T) {
	l := newListener("id", 1)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	_, err := l.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestSink_CopiesChunkAndReports(t *testing.T) {
	r := NewRegistry(8)
	a := r.Register()
	gone := r.Register()
	require.NoError(t, gone.Close())

	var size, delivered, pruned int
	s := NewSink(r, func(s, d, p int) {
		size, delivered, pruned = s, d, p
	})

	buf := []byte("abc")
	n, err := s.Write(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	buf[0] = 'z'

	got := drain(a)
	require.Len(t, got, 1)
	assert.Equal(t, "abc", string(got[0]))
	assert.Equal(t, 3, size)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, pruned)
}

func TestSink_EmptyWrite(t *testing.T) {
	r := NewRegistry(8)
	a := r.Register()

	n, err := NewSink(r, nil).Write(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, drain(a))
}
