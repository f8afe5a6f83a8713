package circuitbreaker_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
)

var _ = Describe("Metrics", func() {
	var (
		cb    *circuitbreaker.CircuitBreaker
		clock *fakeClock
		ctx   context.Context
	)

	// slowOp advances the fake clock while "running", so latency samples are
	// deterministic.
	slowOp := func(d time.Duration, err error) circuitbreaker.Operation {
		return func(ctx context.Context) error {
			clock.Advance(d)
			return err
		}
	}

	BeforeEach(func() {
		clock = newFakeClock()
		ctx = context.Background()

		var err error
		cb, err = circuitbreaker.New(circuitbreaker.Config{
			Name:             "svc",
			FailureThreshold: 3,
			SuccessThreshold: 2,
			Timeout:          time.Second,
			HalfOpenMaxCalls: 1,
		}, circuitbreaker.WithClock(clock.Now))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("call accounting", func() {
		It("should keep totalCalls equal to failures plus successes at every step", func() {
			ops := []circuitbreaker.Operation{succeeding, failing, failing, succeeding, failing}

			for _, op := range ops {
				cb.Execute(ctx, op)
				m := cb.Metrics()
				Expect(m.TotalCalls).To(Equal(m.TotalFailures + m.TotalSuccesses))
			}
		})

		It("should not count rejected calls as outcomes", func() {
			for i := 0; i < 3; i++ {
				cb.Execute(ctx, failing)
			}
			cb.Execute(ctx, succeeding) // rejected

			m := cb.Metrics()
			Expect(m.TotalCalls).To(Equal(int64(3)))
			Expect(m.TotalFailures).To(Equal(int64(3)))
			Expect(m.TotalSuccesses).To(BeZero())
		})

		It("should track consecutive streaks", func() {
			cb.Execute(ctx, succeeding)
			cb.Execute(ctx, succeeding)
			Expect(cb.Metrics().ConsecutiveSuccesses).To(Equal(2))

			cb.Execute(ctx, failing)
			m := cb.Metrics()
			Expect(m.ConsecutiveSuccesses).To(BeZero())
			Expect(m.ConsecutiveFailures).To(Equal(1))
		})
	})

	Describe("failure rate", func() {
		It("should be zero with no calls", func() {
			Expect(cb.Metrics().FailureRate).To(BeZero())
		})

		It("should be the ratio of failures to calls", func() {
			cb.Execute(ctx, failing)
			cb.Execute(ctx, succeeding)
			cb.Execute(ctx, succeeding)
			cb.Execute(ctx, succeeding)

			Expect(cb.Metrics().FailureRate).To(BeNumerically("~", 0.25, 1e-9))
		})
	})

	Describe("latency sample", func() {
		It("should report zero with no samples", func() {
			Expect(cb.Metrics().AvgLatency).To(BeZero())
		})

		It("should average recorded latencies", func() {
			cb.Execute(ctx, slowOp(10*time.Millisecond, nil))
			cb.Execute(ctx, slowOp(30*time.Millisecond, nil))

			Expect(cb.Metrics().AvgLatency).To(Equal(20 * time.Millisecond))
		})

		It("should include failed calls in the sample", func() {
			cb.Execute(ctx, slowOp(10*time.Millisecond, errBoom))
			cb.Execute(ctx, slowOp(50*time.Millisecond, nil))

			Expect(cb.Metrics().AvgLatency).To(Equal(30 * time.Millisecond))
		})

		It("should evict the oldest samples beyond capacity", func() {
			// Fill the 100-slot ring with 1ms samples, then push one 101ms
			// sample; the first 1ms sample is evicted.
			for i := 0; i < 100; i++ {
				cb.Execute(ctx, slowOp(time.Millisecond, nil))
			}
			cb.Execute(ctx, slowOp(101*time.Millisecond, nil))

			Expect(cb.Metrics().AvgLatency).To(Equal(2 * time.Millisecond))
		})
	})

	Describe("timestamps", func() {
		It("should be null before any outcome", func() {
			m := cb.Metrics()
			Expect(m.LastFailure).To(BeNil())
			Expect(m.LastSuccess).To(BeNil())
		})

		It("should record the last failure and success times", func() {
			cb.Execute(ctx, failing)
			failedAt := clock.Now()

			clock.Advance(time.Minute)
			cb.Execute(ctx, succeeding)
			succeededAt := clock.Now()

			m := cb.Metrics()
			Expect(m.LastFailure).To(HaveValue(Equal(failedAt)))
			Expect(m.LastSuccess).To(HaveValue(Equal(succeededAt)))
		})
	})

	Describe("uptime", func() {
		It("should be 1.0 while the breaker has never left CLOSED", func() {
			clock.Advance(time.Hour)
			Expect(cb.Metrics().Uptime).To(BeNumerically("==", 1))
		})

		It("should be the fraction of time spent CLOSED", func() {
			// 3s closed, then trip and stay open for 1s of a 4s lifetime.
			clock.Advance(3 * time.Second)
			for i := 0; i < 3; i++ {
				cb.Execute(ctx, failing)
			}
			clock.Advance(999 * time.Millisecond)

			Expect(cb.Metrics().Uptime).To(BeNumerically("~", 0.75, 0.01))
		})

		It("should restart at 1.0 after a reset", func() {
			for i := 0; i < 3; i++ {
				cb.Execute(ctx, failing)
			}
			clock.Advance(10 * time.Second)

			cb.Reset()
			clock.Advance(time.Second)

			Expect(cb.Metrics().Uptime).To(BeNumerically("==", 1))
		})
	})
})
