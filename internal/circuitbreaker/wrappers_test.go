package circuitbreaker_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
)

var _ = Describe("Wrappers", func() {
	var (
		registry *circuitbreaker.Registry
		clock    *fakeClock
		ctx      context.Context
	)

	BeforeEach(func() {
		clock = newFakeClock()
		ctx = context.Background()

		var err error
		registry, err = circuitbreaker.NewRegistry(
			circuitbreaker.Config{
				FailureThreshold: 2,
				SuccessThreshold: 1,
				Timeout:          time.Second,
				HalfOpenMaxCalls: 1,
			},
			nil,
			circuitbreaker.WithClock(clock.Now),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	tripBreaker := func(name string) {
		cb := registry.Get(name)
		for i := 0; i < 2; i++ {
			cb.Execute(ctx, failing)
		}
		Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
	}

	Describe("Do", func() {
		It("should return the operation's result", func() {
			result, err := circuitbreaker.Do(ctx, registry, "svcA", func(ctx context.Context) (int, error) {
				return 42, nil
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(42))
		})

		It("should propagate the operation's error unchanged", func() {
			_, err := circuitbreaker.Do(ctx, registry, "svcA", func(ctx context.Context) (int, error) {
				return 0, errBoom
			})

			Expect(err).To(MatchError(errBoom))
		})

		It("should record outcomes on the named breaker", func() {
			circuitbreaker.Do(ctx, registry, "svcA", func(ctx context.Context) (int, error) {
				return 0, errBoom
			})

			Expect(registry.Get("svcA").Metrics().TotalFailures).To(Equal(int64(1)))
		})

		It("should return a zero value and *OpenError when rejected", func() {
			tripBreaker("svcA")

			result, err := circuitbreaker.Do(ctx, registry, "svcA", func(ctx context.Context) (string, error) {
				return "never", nil
			})

			Expect(result).To(BeEmpty())
			Expect(circuitbreaker.IsOpenError(err)).To(BeTrue())
		})
	})

	Describe("DoWithFallback", func() {
		It("should not invoke the fallback on success", func() {
			fallbackCalled := false

			result, err := circuitbreaker.DoWithFallback(ctx, registry, "svcA",
				func(ctx context.Context) (string, error) { return "live", nil },
				func(ctx context.Context) (string, error) {
					fallbackCalled = true
					return "cached", nil
				})

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal("live"))
			Expect(fallbackCalled).To(BeFalse())
		})

		It("should surface genuine operation failures instead of falling back", func() {
			fallbackCalled := false

			_, err := circuitbreaker.DoWithFallback(ctx, registry, "svcA",
				func(ctx context.Context) (string, error) { return "", errBoom },
				func(ctx context.Context) (string, error) {
					fallbackCalled = true
					return "cached", nil
				})

			Expect(err).To(MatchError(errBoom))
			Expect(fallbackCalled).To(BeFalse())
		})

		It("should fall back when the breaker rejects the call", func() {
			tripBreaker("svcA")

			result, err := circuitbreaker.DoWithFallback(ctx, registry, "svcA",
				func(ctx context.Context) (string, error) { return "live", nil },
				func(ctx context.Context) (string, error) { return "cached", nil })

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal("cached"))
		})

		It("should propagate the fallback's own error", func() {
			tripBreaker("svcA")

			_, err := circuitbreaker.DoWithFallback(ctx, registry, "svcA",
				func(ctx context.Context) (string, error) { return "live", nil },
				func(ctx context.Context) (string, error) { return "", errBoom })

			Expect(err).To(MatchError(errBoom))
		})
	})

	Describe("IsServiceAvailable", func() {
		It("should be true for a healthy service", func() {
			Expect(circuitbreaker.IsServiceAvailable(registry, "svcA")).To(BeTrue())
		})

		It("should be false while the circuit is open", func() {
			tripBreaker("svcA")
			Expect(circuitbreaker.IsServiceAvailable(registry, "svcA")).To(BeFalse())
		})

		It("should become true again after the open timeout", func() {
			tripBreaker("svcA")
			clock.Advance(time.Second)
			Expect(circuitbreaker.IsServiceAvailable(registry, "svcA")).To(BeTrue())
		})
	})
})
