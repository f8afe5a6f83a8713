package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/resilience/config"
	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience/internal/handler"
	"github.com/angeloszaimis/resilience/internal/httpserver"
	"github.com/angeloszaimis/resilience/internal/metrics"
	"github.com/angeloszaimis/resilience/internal/monitor"
	"github.com/angeloszaimis/resilience/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics.Init()
	collector := metrics.NewCollector(1024, log)
	collector.Start(ctx)

	registry, err := buildRegistry(cfg, collector)
	if err != nil {
		log.Error("Failed to build breaker registry", slog.Any("err", err))
		os.Exit(1)
	}

	if err := startMonitors(ctx, cfg, registry, log); err != nil {
		log.Error("Failed to start monitors", slog.Any("err", err))
		os.Exit(1)
	}

	adminHandler := handler.NewAdminHandler(log, registry)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(adminHandler))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Admin server listening", slog.String("address", cfg.Server.Address))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error running admin server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// buildRegistry converts the file configuration into validated breaker
// configurations and wires the registry's breakers to the metrics collector.
func buildRegistry(cfg *config.Config, collector *metrics.Collector) (*circuitbreaker.Registry, error) {
	defaults, err := breakerDefaults(cfg.Defaults)
	if err != nil {
		return nil, err
	}

	presets := make([]circuitbreaker.Config, 0, len(cfg.Services))
	for _, svc := range cfg.Services {
		preset, err := breakerPreset(svc, defaults)
		if err != nil {
			return nil, err
		}
		presets = append(presets, preset)
	}

	return circuitbreaker.NewRegistry(defaults, presets,
		circuitbreaker.WithCallHook(collector.CallHook()),
		circuitbreaker.WithStateChangeHook(collector.StateChangeHook()),
	)
}

func breakerDefaults(defaults config.BreakerDefaults) (circuitbreaker.Config, error) {
	timeout, err := time.ParseDuration(defaults.Timeout)
	if err != nil {
		return circuitbreaker.Config{}, err
	}

	return circuitbreaker.Config{
		FailureThreshold: defaults.FailureThreshold,
		SuccessThreshold: defaults.SuccessThreshold,
		Timeout:          timeout,
		HalfOpenMaxCalls: defaults.HalfOpenMaxCalls,
	}, nil
}

// breakerPreset fills the zero-valued tunables of a service entry from the
// defaults, so presets only need to state what differs.
func breakerPreset(svc config.ServiceConfig, defaults circuitbreaker.Config) (circuitbreaker.Config, error) {
	preset := circuitbreaker.Config{
		Name:             svc.Name,
		FailureThreshold: svc.FailureThreshold,
		SuccessThreshold: svc.SuccessThreshold,
		Timeout:          defaults.Timeout,
		HalfOpenMaxCalls: svc.HalfOpenMaxCalls,
	}

	if preset.FailureThreshold == 0 {
		preset.FailureThreshold = defaults.FailureThreshold
	}
	if preset.SuccessThreshold == 0 {
		preset.SuccessThreshold = defaults.SuccessThreshold
	}
	if preset.HalfOpenMaxCalls == 0 {
		preset.HalfOpenMaxCalls = defaults.HalfOpenMaxCalls
	}
	if svc.Timeout != "" {
		timeout, err := time.ParseDuration(svc.Timeout)
		if err != nil {
			return circuitbreaker.Config{}, err
		}
		preset.Timeout = timeout
	}

	return preset, nil
}

func startMonitors(ctx context.Context, cfg *config.Config, registry *circuitbreaker.Registry, log *slog.Logger) error {
	interval, err := time.ParseDuration(cfg.Monitor.Interval)
	if err != nil {
		return err
	}

	for _, svc := range cfg.Services {
		if svc.ProbeURL == "" {
			continue
		}

		log.Info("Starting monitor",
			slog.String("service", svc.Name),
			slog.String("url", svc.ProbeURL))

		go monitor.Watch(ctx, registry, svc.Name, svc.ProbeURL, interval, log)
	}

	return nil
}
