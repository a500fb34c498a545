package circuitbreaker_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience-gate/internal/circuitbreaker"
)

// recordingAnalyzer captures analyzer callbacks for assertions.
type recordingAnalyzer struct {
	mutex     sync.Mutex
	successes []time.Duration
	failures  []error
}

func (a *recordingAnalyzer) OnSuccess(service string, elapsed time.Duration) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.successes = append(a.successes, elapsed)
}

func (a *recordingAnalyzer) OnFailure(service string, elapsed time.Duration, err error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.failures = append(a.failures, err)
}

// panickingAnalyzer misbehaves on every callback.
type panickingAnalyzer struct{}

func (panickingAnalyzer) OnSuccess(string, time.Duration)        { panic("analyzer bug") }
func (panickingAnalyzer) OnFailure(string, time.Duration, error) { panic("analyzer bug") }

var _ = Describe("FailureAnalyzer", func() {
	var (
		ctx context.Context
		cfg circuitbreaker.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = circuitbreaker.Config{
			ServiceName:      "search-service",
			FailureThreshold: 2,
			SuccessThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxCalls: 1,
		}
	})

	It("should observe successes and failures of admitted calls", func() {
		analyzer := &recordingAnalyzer{}
		cb, err := circuitbreaker.New(cfg, circuitbreaker.WithAnalyzer(analyzer))
		Expect(err).NotTo(HaveOccurred())

		Expect(cb.Execute(ctx, succeedingWork)).To(Succeed())
		Expect(cb.Execute(ctx, failingWork)).To(MatchError(errBoom))

		Expect(analyzer.successes).To(HaveLen(1))
		Expect(analyzer.failures).To(ConsistOf(errBoom))
	})

	It("should not observe rejected calls", func() {
		analyzer := &recordingAnalyzer{}
		cb, err := circuitbreaker.New(cfg, circuitbreaker.WithAnalyzer(analyzer))
		Expect(err).NotTo(HaveOccurred())

		_ = cb.Execute(ctx, failingWork)
		_ = cb.Execute(ctx, failingWork)
		Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

		Expect(circuitbreaker.IsOpen(cb.Execute(ctx, succeedingWork))).To(BeTrue())
		Expect(analyzer.failures).To(HaveLen(2))
		Expect(analyzer.successes).To(BeEmpty())
	})

	It("should swallow analyzer panics without affecting the caller", func() {
		cb, err := circuitbreaker.New(cfg, circuitbreaker.WithAnalyzer(panickingAnalyzer{}))
		Expect(err).NotTo(HaveOccurred())

		Expect(cb.Execute(ctx, succeedingWork)).To(Succeed())
		Expect(cb.Execute(ctx, failingWork)).To(MatchError(errBoom))

		// Bookkeeping still happened despite the analyzer blowing up.
		status := cb.Status()
		Expect(status.Stats.SuccessfulCalls).To(Equal(int64(1)))
		Expect(status.Stats.FailedCalls).To(Equal(int64(1)))
	})
})

var _ = Describe("Hooks", func() {
	var (
		ctx context.Context
		cfg circuitbreaker.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = circuitbreaker.Config{
			ServiceName:      "search-service",
			FailureThreshold: 2,
			SuccessThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxCalls: 1,
		}
	})

	It("should report each transition exactly once", func() {
		type change struct{ from, to circuitbreaker.State }
		var changes []change

		clock := newFakeClock()
		cb, err := circuitbreaker.New(cfg,
			circuitbreaker.WithClock(clock),
			circuitbreaker.OnStateChange(func(service string, from, to circuitbreaker.State) {
				changes = append(changes, change{from, to})
			}),
		)
		Expect(err).NotTo(HaveOccurred())

		_ = cb.Execute(ctx, failingWork)
		_ = cb.Execute(ctx, failingWork)
		clock.Advance(cfg.OpenTimeout)
		Expect(cb.Execute(ctx, succeedingWork)).To(Succeed())

		Expect(changes).To(Equal([]change{
			{circuitbreaker.StateClosed, circuitbreaker.StateOpen},
			{circuitbreaker.StateOpen, circuitbreaker.StateHalfOpen},
			{circuitbreaker.StateHalfOpen, circuitbreaker.StateClosed},
		}))
	})

	It("should report completed calls with their outcome", func() {
		var errs []error
		cb, err := circuitbreaker.New(cfg,
			circuitbreaker.OnCall(func(service string, state circuitbreaker.State, elapsed time.Duration, callErr error) {
				errs = append(errs, callErr)
			}),
		)
		Expect(err).NotTo(HaveOccurred())

		Expect(cb.Execute(ctx, succeedingWork)).To(Succeed())
		Expect(cb.Execute(ctx, failingWork)).To(MatchError(errBoom))

		Expect(errs).To(Equal([]error{nil, errBoom}))
	})

	It("should report panicked calls with a failure", func() {
		var errs []error
		cb, err := circuitbreaker.New(cfg,
			circuitbreaker.OnCall(func(service string, state circuitbreaker.State, elapsed time.Duration, callErr error) {
				errs = append(errs, callErr)
			}),
		)
		Expect(err).NotTo(HaveOccurred())

		func() {
			defer func() { _ = recover() }()
			_ = cb.Execute(ctx, func(ctx context.Context) error {
				panic("downstream exploded")
			})
		}()

		Expect(errs).To(HaveLen(1))
		Expect(errs[0]).To(MatchError(ContainSubstring("downstream exploded")))
	})

	It("should report rejections without invoking the work", func() {
		var rejections []error
		cb, err := circuitbreaker.New(cfg,
			circuitbreaker.OnReject(func(service string, rejectErr error) {
				rejections = append(rejections, rejectErr)
			}),
		)
		Expect(err).NotTo(HaveOccurred())

		_ = cb.Execute(ctx, failingWork)
		_ = cb.Execute(ctx, failingWork)
		_ = cb.Execute(ctx, succeedingWork)

		Expect(rejections).To(HaveLen(1))
		Expect(circuitbreaker.IsOpen(rejections[0])).To(BeTrue())
	})
})
