package mocks

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/types"
)

// MockMetrics 按 "方法:标签" 计数的指标记录器
type MockMetrics struct {
	mu     sync.Mutex
	counts map[string]int
	active int
}

// NewMockMetrics 创建 MockMetrics
func NewMockMetrics() *MockMetrics {
	return &MockMetrics{counts: make(map[string]int)}
}

func (m *MockMetrics) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

// Count 返回计数，例如 Count("connect_completed:success")
func (m *MockMetrics) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

// Active 返回最后一次上报的链路数
func (m *MockMetrics) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// PSMRegistered 实现 MetricsRecorder
func (m *MockMetrics) PSMRegistered(status types.Status) {
	m.inc("psm_registered:" + status.String())
}

// ConnectIssued 实现 MetricsRecorder
func (m *MockMetrics) ConnectIssued(localInitiated bool) {
	m.inc(fmt.Sprintf("connect_issued:%t", localInitiated))
}

// ConnectCompleted 实现 MetricsRecorder
func (m *MockMetrics) ConnectCompleted(status types.ConnectStatus) {
	m.inc("connect_completed:" + status.String())
}

// SDPSearchStarted 实现 MetricsRecorder
func (m *MockMetrics) SDPSearchStarted(retry bool) {
	m.inc(fmt.Sprintf("sdp_started:%t", retry))
}

// SDPSearchFinished 实现 MetricsRecorder
func (m *MockMetrics) SDPSearchFinished(found bool) {
	m.inc(fmt.Sprintf("sdp_finished:%t", found))
}

// Disconnected 实现 MetricsRecorder
func (m *MockMetrics) Disconnected(status types.DisconnectStatus, localInitiated bool) {
	m.inc(fmt.Sprintf("disconnected:%s:%t", status, localInitiated))
}

// LinksActive 实现 MetricsRecorder
func (m *MockMetrics) LinksActive(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = n
}

var _ interfaces.MetricsRecorder = (*MockMetrics)(nil)

// MockPSMCache 基于 map 的发现缓存
type MockPSMCache struct {
	mu      sync.Mutex
	entries map[string]types.PSM

	ForgetCalls int
}

// NewMockPSMCache 创建 MockPSMCache
func NewMockPSMCache() *MockPSMCache {
	return &MockPSMCache{entries: make(map[string]types.PSM)}
}

func cacheKey(peer types.TypedAddr, service types.UUID) string {
	return peer.String() + "|" + service.String()
}

// Lookup 实现 PSMCache
func (c *MockPSMCache) Lookup(peer types.TypedAddr, service types.UUID) (types.PSM, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	psm, ok := c.entries[cacheKey(peer, service)]
	return psm, ok
}

// Remember 实现 PSMCache
func (c *MockPSMCache) Remember(peer types.TypedAddr, service types.UUID, psm types.PSM) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(peer, service)] = psm
}

// Forget 实现 PSMCache
func (c *MockPSMCache) Forget(peer types.TypedAddr, service types.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ForgetCalls++
	delete(c.entries, cacheKey(peer, service))
}

var _ interfaces.PSMCache = (*MockPSMCache)(nil)
