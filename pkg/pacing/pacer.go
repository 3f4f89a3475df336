// Package pacing releases bytes from a source no faster than a fixed rate, so a
// file read from disk is delivered at its real playback speed.
package pacing

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const DefaultChunkSize = 4096

// Pacer copies a source to a destination at a bounded average rate.
type Pacer struct {
	src       io.ReadCloser
	limiter   *rate.Limiter
	chunkSize int

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New returns a Pacer releasing bytesPerSecond bytes per second from src in
// chunks of at most chunkSize bytes. A non-positive rate disables pacing.
func New(src io.ReadCloser, bytesPerSecond, chunkSize int) *Pacer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	limit := rate.Inf
	if bytesPerSecond > 0 {
		limit = rate.Limit(bytesPerSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pacer{
		src:       src,
		limiter:   rate.NewLimiter(limit, chunkSize),
		chunkSize: chunkSize,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Rate returns the configured rate in bytes per second, or 0 when unpaced.
func (p *Pacer) Rate() int {
	if p.limiter.Limit() == rate.Inf {
		return 0
	}
	return int(p.limiter.Limit())
}

// Run copies the source to dst until the source is exhausted, End is called or
// dst fails. It returns the number of bytes released. Exhaustion and End are
// not errors.
func (p *Pacer) Run(dst io.Writer) (int64, error) {
	defer p.End()

	// Start with an empty bucket so the first chunk is paced like the rest.
	p.limiter.AllowN(time.Now(), p.chunkSize)

	var written int64
	buf := make([]byte, p.chunkSize)

	for {
		n, readErr := p.src.Read(buf)
		if p.ctx.Err() != nil {
			return written, nil
		}

		if n > 0 {
			if err := p.limiter.WaitN(p.ctx, n); err != nil {
				if p.ctx.Err() != nil {
					return written, nil
				}
				return written, err
			}

			w, err := dst.Write(buf[:n])
			written += int64(w)
			if err != nil {
				return written, err
			}
			if w != n {
				return written, io.ErrShortWrite
			}
		}

		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			if p.ctx.Err() != nil {
				return written, nil
			}
			return written, readErr
		}
	}
}

// End stops the pacer immediately and closes the source. It is safe to call
// more than once and from any goroutine.
func (p *Pacer) End() {
	p.once.Do(func() {
		p.cancel()
		_ = p.src.Close()
	})
}

// Done is closed once End has been called or Run has returned.
func (p *Pacer) Done() <-chan struct{} {
	return p.ctx.Done()
}
