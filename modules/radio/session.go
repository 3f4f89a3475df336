package radio

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zachfi/radiogo/pkg/pacing"
	"github.com/zachfi/radiogo/pkg/probe"
)

// State is the lifecycle state of the broadcast session.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Session is a snapshot of the controller state.
type Session struct {
	State      State
	Source     string
	BitrateBps int
}

// Prober discovers the bitrate of a source.
type Prober interface {
	Probe(ctx context.Context, path string) probe.Result
}

// Controller runs the source -> pacer -> sink pipeline and owns the session
// state machine. There is at most one pipeline at a time.
type Controller struct {
	cfg    *Config
	logger *slog.Logger
	prober Prober
	open   SourceOpener
	sink   io.Writer

	mtx     sync.Mutex
	state   State
	source  string
	bitrate int
	pacer   *pacing.Pacer
	done    chan struct{}
	attempt uint64

	// stopping is the done channel of a pipeline Stop is waiting on.
	stopping chan struct{}
}

func NewController(cfg *Config, sink io.Writer, prober Prober, open SourceOpener, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		logger: logger,
		prober: prober,
		open:   open,
		sink:   sink,
		state:  StateIdle,
	}
}

// Session returns the current session state.
func (c *Controller) Session() Session {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return Session{
		State:      c.state,
		Source:     c.source,
		BitrateBps: c.bitrate,
	}
}

// Start opens the configured source, discovers its bitrate and starts pacing
// it into the sink. The pipeline runs in the background until the source is
// exhausted or Stop is called. Starting a session that is already starting or
// streaming does nothing. A Start racing a Stop waits for the old pipeline to
// exit first.
func (c *Controller) Start(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "Controller.Start")
	defer func() {
		_ = errHandler(span, err, "failed to start streaming", c.logger)
	}()

	c.mtx.Lock()
	for c.stopping != nil {
		wait := c.stopping
		c.mtx.Unlock()
		<-wait
		c.mtx.Lock()
		if c.stopping == wait {
			c.stopping = nil
		}
	}
	if c.state == StateStarting || c.state == StateStreaming {
		state, source := c.state, c.source
		c.mtx.Unlock()
		c.logger.Info("start ignored", "state", state, "source", source)
		return nil
	}

	c.attempt++
	attempt := c.attempt
	source := c.cfg.Source
	c.state = StateStarting
	c.source = source
	c.bitrate = 0
	c.mtx.Unlock()

	span.SetAttributes(attribute.String("source", source))
	c.logger.Info("starting", "source", source)

	src, err := c.open(ctx, source)
	if err != nil {
		c.abort(attempt)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return errors.Wrap(err, "failed to open source")
	}

	bitrate := 0
	if b, ok := src.(bitrater); ok {
		bitrate = b.BitrateBps()
	}
	if bitrate <= 0 {
		bitrate = c.prober.Probe(ctx, source).BitrateBps
	}
	span.SetAttributes(attribute.Int("bitrate", bitrate))

	pacer := pacing.New(src, bitrate/c.cfg.BitrateDivisor, c.cfg.ChunkSize)

	c.mtx.Lock()
	if c.attempt != attempt || c.state != StateStarting {
		// Stopped while probing.
		c.mtx.Unlock()
		pacer.End()
		c.logger.Info("start abandoned", "source", source)
		return nil
	}

	done := make(chan struct{})
	c.state = StateStreaming
	c.bitrate = bitrate
	c.pacer = pacer
	c.done = done
	c.mtx.Unlock()

	c.logger.Info("streaming", "source", source, "bitrate", bitrate, "bytes_per_second", pacer.Rate())

	go c.run(pacer, done)

	return nil
}

func (c *Controller) run(p *pacing.Pacer, done chan struct{}) {
	defer close(done)

	n, err := p.Run(c.sink)
	if err != nil {
		c.logger.Error("pipeline failed", "err", err, "written", n)
	} else {
		c.logger.Info("pipeline finished", "written", n)
	}

	c.mtx.Lock()
	if c.pacer == p {
		c.state = StateStopped
		c.pacer = nil
		c.done = nil
	}
	c.mtx.Unlock()
}

// abort moves a failed start to Stopped unless another command got there first.
func (c *Controller) abort(attempt uint64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.attempt == attempt && c.state == StateStarting {
		c.state = StateStopped
	}
}

// Stop ends the running pipeline and waits for it to release the sink. It
// does nothing when the session is idle or stopped.
func (c *Controller) Stop() {
	c.mtx.Lock()
	if wait := c.stopping; wait != nil {
		c.mtx.Unlock()
		<-wait
		return
	}

	switch c.state {
	case StateStarting:
		c.state = StateStopped
		c.mtx.Unlock()
		c.logger.Info("stopped while starting")
		return
	case StateStreaming:
	default:
		c.mtx.Unlock()
		return
	}

	// run moves the session to Stopped before closing done.
	p, done := c.pacer, c.done
	c.stopping = done
	c.mtx.Unlock()

	p.End()
	<-done

	c.mtx.Lock()
	if c.stopping == done {
		c.stopping = nil
	}
	c.mtx.Unlock()

	c.logger.Info("stopped")
}
