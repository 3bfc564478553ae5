package observability

import (
	"strconv"
	"sync"
	"time"
)

// Gateway events counted by RecordGateway.
const (
	GatewayRequest      = "request"
	GatewayUnauthorized = "unauthorized"
	GatewayRefresh      = "refresh"
	GatewayRetry        = "retry"
	GatewayForcedLogout = "forced_logout"
	GatewayNetworkError = "network_error"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	gatewayCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		gatewayCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for portal requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
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

// RecordGateway increments an upstream gateway counter.
func (m *Metrics) RecordGateway(event string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gatewayCount[event]++
}

// Gateway returns the current value of an upstream gateway counter.
func (m *Metrics) Gateway(event string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gatewayCount[event]
}

// Snapshot copies every counter, keyed by family.
func (m *Metrics) Snapshot() map[string]map[string]int64 {
	out := map[string]map[string]int64{}
	if m == nil {
		return out
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out["requests"] = copyCounts(m.requestCount)
	out["errors"] = copyCounts(m.errorCount)
	out["gateway"] = copyCounts(m.gatewayCount)
	return out
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
