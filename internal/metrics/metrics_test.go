package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience-gate/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("Snapshot", func() {
		It("should start empty", func() {
			snap := m.Snapshot()
			Expect(snap.TotalCalls).To(BeZero())
			Expect(snap.Services).To(BeEmpty())
		})

		It("should aggregate counters per service", func() {
			m.RecordSuccess("payment-service", 10*time.Millisecond)
			m.RecordSuccess("payment-service", 20*time.Millisecond)
			m.RecordFailure("payment-service", 30*time.Millisecond)
			m.RecordRejection("payment-service")
			m.RecordSuccess("user-service", 5*time.Millisecond)

			snap := m.Snapshot()
			Expect(snap.TotalCalls).To(Equal(int64(5)))
			Expect(snap.Services).To(HaveLen(2))

			payment := snap.Services["payment-service"]
			Expect(payment.Calls).To(Equal(int64(4)))
			Expect(payment.Successes).To(Equal(int64(2)))
			Expect(payment.Failures).To(Equal(int64(1)))
			Expect(payment.Rejections).To(Equal(int64(1)))
		})

		It("should compute latency aggregates", func() {
			for i := 1; i <= 100; i++ {
				m.RecordSuccess("payment-service", time.Duration(i)*time.Millisecond)
			}

			payment := m.Snapshot().Services["payment-service"]
			Expect(payment.AvgLatency).To(Equal(50500 * time.Microsecond))
			Expect(payment.P50Latency).To(Equal(51 * time.Millisecond))
			Expect(payment.P95Latency).To(Equal(96 * time.Millisecond))
			Expect(payment.P99Latency).To(Equal(100 * time.Millisecond))
		})

		It("should include services known only by state", func() {
			m.UpdateState("idle-service", "CLOSED")

			snap := m.Snapshot()
			Expect(snap.Services).To(HaveKey("idle-service"))
			Expect(snap.Services["idle-service"].State).To(Equal("CLOSED"))
			Expect(snap.Services["idle-service"].Calls).To(BeZero())
		})

		It("should report the latest state", func() {
			m.UpdateState("payment-service", "CLOSED")
			m.UpdateState("payment-service", "OPEN")

			Expect(m.Snapshot().Services["payment-service"].State).To(Equal("OPEN"))
		})
	})
})
