package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
)

const probeTimeout = 5 * time.Second

// Watch periodically probes a service's HTTP endpoint through its circuit
// breaker. A 5xx response or transport error counts as a failure, so a dead
// service trips its breaker even with no caller traffic, and successful
// probes in HALF-OPEN close it again. While the circuit is open the probe is
// rejected without touching the service; the next attempt after the breaker's
// timeout becomes the recovery probe.
func Watch(
	ctx context.Context,
	registry *circuitbreaker.Registry,
	service string,
	probeURL string,
	interval time.Duration,
	logger *slog.Logger,
) {
	client := &http.Client{
		Timeout: probeTimeout,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Monitor stopped",
				slog.String("service", service))
			return

		case <-ticker.C:
			err := registry.Get(service).Execute(ctx, func(ctx context.Context) error {
				return probe(ctx, client, probeURL)
			})

			switch {
			case err == nil:
			case circuitbreaker.IsOpenError(err):
				logger.Debug("Probe skipped, circuit open",
					slog.String("service", service))
			default:
				logger.Warn("Probe failed",
					slog.String("service", service),
					slog.String("url", probeURL),
					slog.Any("err", err))
			}
		}
	}
}

func probe(ctx context.Context, client *http.Client, probeURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return err
	}

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("probe returned status %d", res.StatusCode)
	}

	return nil
}
