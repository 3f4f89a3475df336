package radio

import (
	"context"
	"errors"
	"log/slog"

	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/zachfi/radiogo/pkg/broadcast"
	"github.com/zachfi/radiogo/pkg/probe"
)

var (
	// ErrNotFound marks failures caused by a missing source or asset.
	ErrNotFound = errors.New("not found")

	// ErrUnrecognizedCommand is returned for commands matching neither start nor stop.
	ErrUnrecognizedCommand = errors.New("unrecognized command")
)

var module = "radio"

var tracer = otel.Tracer(module)

// Station is the capability set the request layer needs from the radio.
type Station interface {
	Asset(name string) (*Asset, error)
	CreateListener() *broadcast.Listener
	RemoveListener(id string)
	Start(ctx context.Context) error
	Stop()
	HandleCommand(ctx context.Context, command string) (CommandResult, error)
}

var _ Station = (*Radio)(nil)

// Radio owns the listener registry and the session controller for the
// lifetime of the process.
type Radio struct {
	services.Service
	cfg        *Config
	logger     *slog.Logger
	registry   *broadcast.Registry
	controller *Controller
	metrics    *metrics
}

// New creates and returns a new Radio.
func New(cfg Config, logger slog.Logger, reg prometheus.Registerer) (*Radio, error) {
	cfg.applyDefaults()

	r := &Radio{
		cfg:      &cfg,
		logger:   logger.With("module", module),
		registry: broadcast.NewRegistry(cfg.ListenerBuffer),
	}

	prober := probe.New(cfg.ProbeCommand, cfg.FallbackBitrate, cfg.ProbeTimeout, r.logger)

	r.metrics = newMetrics(reg)
	sink := broadcast.NewSink(r.registry, r.metrics.observeDelivery)
	r.controller = NewController(r.cfg, sink, &countingProber{Prober: prober, m: r.metrics}, openSource(r.logger), r.logger)
	r.metrics.registerState(reg, r.registry, r.controller)

	r.Service = services.NewBasicService(r.starting, r.running, r.stopping)

	return r, nil
}

func (r *Radio) starting(ctx context.Context) error {
	if !r.cfg.Autostart {
		return nil
	}

	// A missing source should not keep the HTTP surface down; Start logs the failure.
	_ = r.Start(ctx)

	return nil
}

func (r *Radio) running(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (r *Radio) stopping(_ error) error {
	r.logger.Info("stopping")

	r.controller.Stop()
	r.registry.CloseAll()

	return nil
}

// Session returns a snapshot of the broadcast session.
func (r *Radio) Session() Session {
	return r.controller.Session()
}

func (r *Radio) Asset(name string) (*Asset, error) {
	return openAsset(r.cfg.PublicDir, name)
}

// CreateListener registers a new listener. Callers must call RemoveListener
// when the consumer goes away.
func (r *Radio) CreateListener() *broadcast.Listener {
	l := r.registry.Register()
	r.logger.Debug("listener connected", "id", l.ID, "listeners", r.registry.Len())
	return l
}

func (r *Radio) RemoveListener(id string) {
	r.registry.Unregister(id)
	r.logger.Debug("listener disconnected", "id", id, "listeners", r.registry.Len())
}

func (r *Radio) Start(ctx context.Context) error {
	return r.controller.Start(ctx)
}

func (r *Radio) Stop() {
	r.controller.Stop()
}

// HandleCommand runs a free text control command.
func (r *Radio) HandleCommand(ctx context.Context, command string) (CommandResult, error) {
	cmd := ParseCommand(command)
	r.metrics.commands.WithLabelValues(cmd.String()).Inc()

	switch cmd {
	case CommandStart:
		if err := r.Start(ctx); err != nil {
			return CommandResult{}, err
		}
	case CommandStop:
		r.Stop()
	default:
		return resultUnrecognized, ErrUnrecognizedCommand
	}

	return resultOK, nil
}
