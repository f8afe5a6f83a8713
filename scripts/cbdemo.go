// cbdemo is a tool to observe circuit breaker state transitions against a
// deliberately flaky HTTP backend started in-process.
//
// Usage:
//
//	go run cbdemo.go -failures 6 -calls 20
//
// The backend fails the first -failures requests with 500 and then recovers.
// The tool drives calls through a breaker and prints every admission
// decision, call outcome, and state transition.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"time"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func main() {
	failures := flag.Int("failures", 6, "number of initial backend failures before recovery")
	calls := flag.Int("calls", 20, "total calls to drive through the breaker")
	pause := flag.Duration("pause", 300*time.Millisecond, "pause between calls")
	flag.Parse()

	var served atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if served.Add(1) <= int64(*failures) {
			http.Error(w, "backend down", http.StatusInternalServerError)
			return
		}
		fmt.Fprintln(w, "ok")
	}))
	defer backend.Close()

	cb, err := circuitbreaker.New(circuitbreaker.Config{
		Name:             "demo-backend",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Second,
		HalfOpenMaxCalls: 1,
	}, circuitbreaker.WithStateChangeHook(func(name string, from, to circuitbreaker.State) {
		fmt.Printf("%s== %s: %s -> %s%s\n", colorCyan, name, from, to, colorReset)
	}))
	if err != nil {
		fmt.Fprintln(os.Stderr, "breaker config:", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 2 * time.Second}
	ctx := context.Background()

	for i := 1; i <= *calls; i++ {
		err := cb.Execute(ctx, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, backend.URL, nil)
			if err != nil {
				return err
			}
			res, err := client.Do(req)
			if err != nil {
				return err
			}
			defer res.Body.Close()
			if res.StatusCode != http.StatusOK {
				return fmt.Errorf("status %d", res.StatusCode)
			}
			return nil
		})

		switch {
		case err == nil:
			fmt.Printf("%scall %2d: ok%s\n", colorGreen, i, colorReset)
		case circuitbreaker.IsOpenError(err):
			fmt.Printf("%scall %2d: rejected (%v)%s\n", colorYellow, i, err, colorReset)
		default:
			fmt.Printf("%scall %2d: failed (%v)%s\n", colorRed, i, err, colorReset)
		}

		time.Sleep(*pause)
	}

	m := cb.Metrics()
	fmt.Printf("\nfinal state=%s calls=%d failures=%d successes=%d failure_rate=%.2f uptime=%.2f\n",
		m.State, m.TotalCalls, m.TotalFailures, m.TotalSuccesses, m.FailureRate, m.Uptime)
}
