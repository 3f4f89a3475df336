package recorder

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"

	"github.com/zachfi/radiogo/modules/radio"
	"github.com/zachfi/radiogo/pkg/broadcast"
)

// Station is the part of the radio the recorder listens to.
type Station interface {
	CreateListener() *broadcast.Listener
	RemoveListener(id string)
	Session() radio.Session
}

// Recorder archives the broadcast by registering itself as a listener and
// writing what it hears to <dir>/<source name>.mp3.
type Recorder struct {
	services.Service
	cfg     *Config
	logger  *slog.Logger
	station Station

	// rejoinDelay is the pause before registering again after being pruned.
	rejoinDelay time.Duration
}

var module = "recorder"

// New creates and returns a new Recorder.
func New(cfg Config, station Station, logger slog.Logger) (*Recorder, error) {
	if cfg.WriteBufferSize == 0 {
		cfg.WriteBufferSize = defaultWriteBufferSize
	}
	if cfg.IdleRotate <= 0 {
		cfg.IdleRotate = defaultIdleRotate
	}

	r := &Recorder{
		cfg:         &cfg,
		logger:      logger.With("module", module),
		station:     station,
		rejoinDelay: time.Second,
	}

	r.Service = services.NewBasicService(r.starting, r.running, r.stopping)

	return r, nil
}

func (r *Recorder) starting(_ context.Context) error {
	if r.cfg.Dir == "" {
		r.logger.Info("recording disabled")
		return nil
	}

	if err := os.MkdirAll(r.cfg.Dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "failed to create recording directory")
	}

	return nil
}

func (r *Recorder) running(ctx context.Context) error {
	if r.cfg.Dir == "" {
		<-ctx.Done()
		return nil
	}

	for {
		l := r.station.CreateListener()
		r.logger.Info("recording", "dir", r.cfg.Dir, "listener", l.ID)

		r.record(ctx, l)
		r.station.RemoveListener(l.ID)

		if ctx.Err() != nil {
			return nil
		}

		r.logger.Warn("recorder fell behind the broadcast, rejoining")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.rejoinDelay):
		}
	}
}

func (r *Recorder) stopping(_ error) error {
	r.logger.Info("stopping")
	return nil
}

// record consumes l until ctx is done or the listener is closed. A capture
// is committed whenever the broadcast goes quiet for IdleRotate.
func (r *Recorder) record(ctx context.Context, l *broadcast.Listener) {
	var cur *capture

	idle := time.NewTimer(r.cfg.IdleRotate)
	defer idle.Stop()

	commit := func() {
		if cur != nil {
			cur.close()
			cur = nil
		}
	}
	defer commit()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("context canceled, closing capture")
			return
		case <-idle.C:
			commit()
		case b, ok := <-l.C():
			if !ok {
				return
			}

			if cur == nil {
				c, err := newCapture(r.cfg.Dir, r.destPath(), r.cfg.WriteBufferSize, r.logger)
				if err != nil {
					r.logger.Error("error creating temp file", "err", err)
					continue
				}
				cur = c
			}
			cur.write(b)

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.cfg.IdleRotate)
		}
	}
}

func (r *Recorder) destPath() string {
	name := filepath.Base(r.station.Session().Source)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "broadcast"
	}

	return filepath.Join(r.cfg.Dir, name+".mp3")
}
