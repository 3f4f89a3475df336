package app

import (
	"context"
	"log/slog"
	"sort"

	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/server"
	"github.com/grafana/dskit/services"
	"github.com/grafana/dskit/signals"
	"github.com/pkg/errors"

	"github.com/zachfi/radiogo/modules/radio"
)

const metricsNamespace = "radiogo"

type App struct {
	cfg    Config
	logger slog.Logger

	Server *server.Server

	ModuleManager *modules.Manager
	serviceMap    map[string]services.Service

	radio *radio.Radio
}

// New creates and returns a new App.
func New(cfg Config, logger slog.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
	}

	if a.cfg.Target == "" {
		a.cfg.Target = All
	}

	if err := a.setupModuleManager(); err != nil {
		return nil, errors.Wrap(err, "failed to setup module manager")
	}

	return a, nil
}

// Run starts every module of the configured target and blocks until they
// have all stopped, either from a signal or a module failure.
func (a *App) Run() error {
	serviceMap, err := a.ModuleManager.InitModuleServices(a.cfg.Target)
	if err != nil {
		return errors.Wrap(err, "failed to init module services")
	}
	a.serviceMap = serviceMap

	names := make([]string, 0, len(serviceMap))
	servs := make([]services.Service, 0, len(serviceMap))
	for name, s := range serviceMap {
		names = append(names, name)
		servs = append(servs, s)
	}
	sort.Strings(names)

	sm, err := services.NewManager(servs...)
	if err != nil {
		return errors.Wrap(err, "failed to create service manager")
	}

	healthy := func() { a.logger.Info("started", "target", a.cfg.Target, "modules", names) }
	stopped := func() { a.logger.Info("stopped") }
	serviceFailed := func(service services.Service) {
		// if any service fails, stop everything
		sm.StopAsync()

		module := a.moduleName(service)
		if service.FailureCase() == modules.ErrStopProcess {
			a.logger.Info("received stop signal via return error", "module", module, "err", service.FailureCase())
			return
		}
		a.logger.Error("module failed", "module", module, "err", service.FailureCase())
	}
	sm.AddListener(services.NewManagerListener(healthy, stopped, serviceFailed))

	// If a signal arrives, stop the manager, which stops all the services.
	handler := signals.NewHandler(a.Server.Log)
	go func() {
		handler.Loop()
		sm.StopAsync()
	}()

	if err := sm.StartAsync(context.Background()); err != nil {
		return errors.Wrap(err, "failed to start service manager")
	}

	return sm.AwaitStopped(context.Background())
}

func (a *App) moduleName(service services.Service) string {
	for m, s := range a.serviceMap {
		if s == service {
			return m
		}
	}
	return "unknown"
}
