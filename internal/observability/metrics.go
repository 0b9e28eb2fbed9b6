package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	errorCount      map[string]int64
	rateLimitDenied map[string]int64
	sweepEscalated  int64
	sweepSkipped    int64
	sweepFailed     int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		rateLimitDenied: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordRateLimited counts governor denials per limited operation.
func (m *Metrics) RecordRateLimited(operation string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitDenied[operation]++
}

// RecordSweep accumulates outcome counts from one escalation sweep pass.
func (m *Metrics) RecordSweep(escalated, skipped, failed int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepEscalated += int64(escalated)
	m.sweepSkipped += int64(skipped)
	m.sweepFailed += int64(failed)
}

// SweepTotals returns the accumulated sweep outcome counters.
func (m *Metrics) SweepTotals() (escalated, skipped, failed int64) {
	if m == nil {
		return 0, 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepEscalated, m.sweepSkipped, m.sweepFailed
}
