package metrics

import (
	"sort"
	"sync"
	"time"
)

// latencyWindow bounds the per-service latency samples kept for
// percentile calculation.
const latencyWindow = 1000

type Metrics struct {
	mutex      sync.RWMutex
	successes  map[string]int64
	failures   map[string]int64
	rejections map[string]int64
	latencies  map[string][]time.Duration
	states     map[string]string
	startTime  time.Time
}

type Snapshot struct {
	TotalCalls int64                     `json:"total_calls"`
	Uptime     time.Duration             `json:"uptime"`
	Services   map[string]ServiceMetrics `json:"services"`
}

type ServiceMetrics struct {
	Calls      int64         `json:"calls"`
	Successes  int64         `json:"successes"`
	Failures   int64         `json:"failures"`
	Rejections int64         `json:"rejections"`
	State      string        `json:"state"`
	AvgLatency time.Duration `json:"avg_latency"`
	P50Latency time.Duration `json:"p50_latency"`
	P95Latency time.Duration `json:"p95_latency"`
	P99Latency time.Duration `json:"p99_latency"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		successes:  make(map[string]int64),
		failures:   make(map[string]int64),
		rejections: make(map[string]int64),
		latencies:  make(map[string][]time.Duration),
		states:     make(map[string]string),
		startTime:  time.Now(),
	}
}

func (m *Metrics) RecordSuccess(service string, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.successes[service]++
	m.recordLatency(service, latency)
}

func (m *Metrics) RecordFailure(service string, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failures[service]++
	m.recordLatency(service, latency)
}

func (m *Metrics) RecordRejection(service string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejections[service]++
}

func (m *Metrics) UpdateState(service string, state string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.states[service] = state
}

// recordLatency appends a sample, dropping the oldest once the window is
// full. Caller must hold the mutex.
func (m *Metrics) recordLatency(service string, latency time.Duration) {
	m.latencies[service] = append(m.latencies[service], latency)

	if len(m.latencies[service]) > latencyWindow {
		m.latencies[service] = m.latencies[service][1:]
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:   time.Since(m.startTime),
		Services: make(map[string]ServiceMetrics),
	}

	// Collect all service names seen by any counter
	allServices := make(map[string]bool)
	for service := range m.successes {
		allServices[service] = true
	}
	for service := range m.failures {
		allServices[service] = true
	}
	for service := range m.rejections {
		allServices[service] = true
	}
	for service := range m.states {
		allServices[service] = true
	}

	for service := range allServices {
		sm := ServiceMetrics{
			Successes:  m.successes[service],
			Failures:   m.failures[service],
			Rejections: m.rejections[service],
			State:      m.states[service],
		}
		sm.Calls = sm.Successes + sm.Failures + sm.Rejections
		snap.TotalCalls += sm.Calls

		durations := m.latencies[service]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			sm.AvgLatency = average(sorted)
			sm.P50Latency = percentile(sorted, 0.50)
			sm.P95Latency = percentile(sorted, 0.95)
			sm.P99Latency = percentile(sorted, 0.99)
		}

		snap.Services[service] = sm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
