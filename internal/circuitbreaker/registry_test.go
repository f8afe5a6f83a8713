package circuitbreaker_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
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
				FailureThreshold: 5,
				SuccessThreshold: 2,
				Timeout:          30 * time.Second,
				HalfOpenMaxCalls: 3,
			},
			[]circuitbreaker.Config{
				{
					Name:             "crm-sync",
					FailureThreshold: 2,
					SuccessThreshold: 1,
					Timeout:          time.Second,
					HalfOpenMaxCalls: 1,
				},
			},
			circuitbreaker.WithClock(clock.Now),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewRegistry", func() {
		It("should reject invalid defaults", func() {
			_, err := circuitbreaker.NewRegistry(circuitbreaker.Config{}, nil)
			Expect(err).To(HaveOccurred())
		})

		It("should reject an invalid preset", func() {
			_, err := circuitbreaker.NewRegistry(
				circuitbreaker.DefaultConfig(""),
				[]circuitbreaker.Config{{Name: "bad"}},
			)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Get", func() {
		It("should create a breaker in CLOSED state for an unknown name", func() {
			cb := registry.Get("address-lookup")
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Config().FailureThreshold).To(Equal(5))
			Expect(cb.Name()).To(Equal("address-lookup"))
		})

		It("should return the identical instance for the same name", func() {
			cb1 := registry.Get("svcA")
			cb2 := registry.Get("svcA")
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("should return independent instances for different names", func() {
			cbA := registry.Get("svcA")
			cbB := registry.Get("svcB")
			Expect(cbA).NotTo(BeIdenticalTo(cbB))

			// Tripping svcA leaves svcB untouched.
			for i := 0; i < 5; i++ {
				cbA.Execute(ctx, failing)
			}
			Expect(cbA.State()).To(Equal(circuitbreaker.StateOpen))
			Expect(cbB.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should apply the preset configuration for a known name", func() {
			cb := registry.Get("crm-sync")
			Expect(cb.Config().FailureThreshold).To(Equal(2))
			Expect(cb.Config().Timeout).To(Equal(time.Second))

			cb.Execute(ctx, failing)
			cb.Execute(ctx, failing)
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})
	})

	Describe("Lookup", func() {
		It("should not create breakers", func() {
			_, exists := registry.Lookup("never-seen")
			Expect(exists).To(BeFalse())
			Expect(registry.All()).To(BeEmpty())
		})

		It("should find registered breakers", func() {
			created := registry.Get("svcA")
			found, exists := registry.Lookup("svcA")
			Expect(exists).To(BeTrue())
			Expect(found).To(BeIdenticalTo(created))
		})
	})

	Describe("Concurrent access", func() {
		It("should create a single breaker under concurrent Get calls", func() {
			const goroutines = 100

			var wg sync.WaitGroup
			wg.Add(goroutines)

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					Expect(registry.Get("svcA")).NotTo(BeNil())
				}()
			}

			wg.Wait()
			Expect(registry.All()).To(HaveLen(1))
		})

		It("should handle concurrent executions on the same breaker", func() {
			const goroutines = 50

			var wg sync.WaitGroup
			wg.Add(goroutines * 2)

			cb := registry.Get("svcA")

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					cb.Execute(ctx, failing)
				}()
				go func() {
					defer wg.Done()
					cb.Execute(ctx, succeeding)
				}()
			}

			wg.Wait()

			m := cb.Metrics()
			Expect(m.TotalCalls).To(Equal(m.TotalFailures + m.TotalSuccesses))
			Expect(cb.State()).To(BeElementOf(
				circuitbreaker.StateClosed,
				circuitbreaker.StateOpen,
				circuitbreaker.StateHalfOpen,
			))
		})
	})

	Describe("AllMetrics", func() {
		It("should snapshot every registered breaker", func() {
			registry.Get("svcA").Execute(ctx, succeeding)
			registry.Get("svcB").Execute(ctx, failing)

			snapshots := registry.AllMetrics()
			Expect(snapshots).To(HaveLen(2))
			Expect(snapshots["svcA"].TotalSuccesses).To(Equal(int64(1)))
			Expect(snapshots["svcB"].TotalFailures).To(Equal(int64(1)))
		})
	})

	Describe("ResetAll", func() {
		It("should reset state but keep instances and configuration", func() {
			cb := registry.Get("crm-sync")
			cb.Execute(ctx, failing)
			cb.Execute(ctx, failing)
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

			registry.ResetAll()

			Expect(registry.All()).To(HaveLen(1))
			same, _ := registry.Lookup("crm-sync")
			Expect(same).To(BeIdenticalTo(cb))
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Metrics().TotalCalls).To(BeZero())
			Expect(cb.Config().FailureThreshold).To(Equal(2))
		})
	})

	Describe("HasOpenCircuit", func() {
		It("should be false with no breakers", func() {
			Expect(registry.HasOpenCircuit()).To(BeFalse())
		})

		It("should be false while all circuits are closed", func() {
			registry.Get("svcA")
			registry.Get("svcB")
			Expect(registry.HasOpenCircuit()).To(BeFalse())
		})

		It("should be true while any circuit is open", func() {
			registry.Get("svcA")
			registry.Get("svcB").ForceOpen()
			Expect(registry.HasOpenCircuit()).To(BeTrue())
		})

		It("should turn false once the open circuit times out into HALF-OPEN", func() {
			cb := registry.Get("crm-sync")
			cb.Execute(ctx, failing)
			cb.Execute(ctx, failing)
			Expect(registry.HasOpenCircuit()).To(BeTrue())

			clock.Advance(time.Second)
			Expect(registry.HasOpenCircuit()).To(BeFalse())
		})
	})
})
