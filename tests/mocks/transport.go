package mocks

import (
	"context"
	"sync"

	"github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/types"
)

// MockTransport 模拟 Transport 接口实现
//
// 默认句柄映射：连接 n 的写端为 n，写端 s 配对的读端为 s|0x8000。
type MockTransport struct {
	mu      sync.Mutex
	handler interfaces.EventHandler

	nextSession types.SDPSessionID
	open        map[types.SDPSessionID]types.InstanceID

	// 可覆盖的方法
	RegisterPSMFunc           func(req types.RegisterPSMReq) error
	ConnectFunc               func(req types.ConnectReq) error
	ConnectAcceptResponseFunc func(rsp types.ConnectAcceptRsp) error
	DisconnectFunc            func(sink types.Sink) error
	DisconnectResponseFunc    func(rsp types.DisconnectRsp) error
	RegisterServiceRecordFunc func(req types.RegisterRecordReq) error
	OpenSDPSessionFunc        func(owner types.InstanceID) (types.SDPSessionID, error)
	SDPSearchFunc             func(req types.SDPSearchReq) error
	SinkForConnectionFunc     func(id types.ConnectionID) types.Sink
	EnableNotificationsFunc   func(sink types.Sink, source types.Source) error
	SetHandoverPolicyFunc     func(source types.Source, policy types.HandoverPolicy) error

	// 调用记录
	RegisterPSMCalls   []types.RegisterPSMReq
	ConnectCalls       []types.ConnectReq
	AcceptCalls        []types.ConnectAcceptRsp
	DisconnectCalls    []types.Sink
	DisconnectRspCalls []types.DisconnectRsp
	RecordCalls        []types.RegisterRecordReq
	OpenSessionCalls   []types.InstanceID
	SearchCalls        []types.SDPSearchReq
	CloseSessionCalls  []types.SDPSessionID
	EnableCalls        []SinkSource
	HandoverCalls      []HandoverCall
	DisposeSourceCalls []types.Source
}

// SinkSource 记录 EnableNotifications 调用
type SinkSource struct {
	Sink   types.Sink
	Source types.Source
}

// HandoverCall 记录 SetHandoverPolicy 调用
type HandoverCall struct {
	Source types.Source
	Policy types.HandoverPolicy
}

// NewMockTransport 创建带有默认值的 MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		nextSession: 1,
		open:        make(map[types.SDPSessionID]types.InstanceID),
	}
}

// SetEventHandler 设置事件接收者
func (m *MockTransport) SetEventHandler(h interfaces.EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Emit 把事件投递给事件接收者（用于测试）
func (m *MockTransport) Emit(ev types.TransportEvent) error {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.Deliver(context.Background(), ev)
}

// ============================================================================
// Signaling
// ============================================================================

// RegisterPSM 注册 PSM
func (m *MockTransport) RegisterPSM(req types.RegisterPSMReq) error {
	m.mu.Lock()
	m.RegisterPSMCalls = append(m.RegisterPSMCalls, req)
	m.mu.Unlock()

	if m.RegisterPSMFunc != nil {
		return m.RegisterPSMFunc(req)
	}
	return nil
}

// Connect 外发连接
func (m *MockTransport) Connect(req types.ConnectReq) error {
	m.mu.Lock()
	m.ConnectCalls = append(m.ConnectCalls, req)
	m.mu.Unlock()

	if m.ConnectFunc != nil {
		return m.ConnectFunc(req)
	}
	return nil
}

// ConnectAcceptResponse 响应远端连接
func (m *MockTransport) ConnectAcceptResponse(rsp types.ConnectAcceptRsp) error {
	m.mu.Lock()
	m.AcceptCalls = append(m.AcceptCalls, rsp)
	m.mu.Unlock()

	if m.ConnectAcceptResponseFunc != nil {
		return m.ConnectAcceptResponseFunc(rsp)
	}
	return nil
}

// Disconnect 断开连接
func (m *MockTransport) Disconnect(sink types.Sink) error {
	m.mu.Lock()
	m.DisconnectCalls = append(m.DisconnectCalls, sink)
	m.mu.Unlock()

	if m.DisconnectFunc != nil {
		return m.DisconnectFunc(sink)
	}
	return nil
}

// DisconnectResponse 应答远端断开
func (m *MockTransport) DisconnectResponse(rsp types.DisconnectRsp) error {
	m.mu.Lock()
	m.DisconnectRspCalls = append(m.DisconnectRspCalls, rsp)
	m.mu.Unlock()

	if m.DisconnectResponseFunc != nil {
		return m.DisconnectResponseFunc(rsp)
	}
	return nil
}

// ============================================================================
// SDP
// ============================================================================

// RegisterServiceRecord 注册服务记录
func (m *MockTransport) RegisterServiceRecord(req types.RegisterRecordReq) error {
	m.mu.Lock()
	m.RecordCalls = append(m.RecordCalls, req)
	m.mu.Unlock()

	if m.RegisterServiceRecordFunc != nil {
		return m.RegisterServiceRecordFunc(req)
	}
	return nil
}

// OpenSDPSession 创建搜索会话
func (m *MockTransport) OpenSDPSession(owner types.InstanceID) (types.SDPSessionID, error) {
	m.mu.Lock()
	m.OpenSessionCalls = append(m.OpenSessionCalls, owner)
	m.mu.Unlock()

	if m.OpenSDPSessionFunc != nil {
		return m.OpenSDPSessionFunc(owner)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.nextSession
	m.nextSession++
	m.open[s] = owner
	return s, nil
}

// SDPSearch 发起搜索
func (m *MockTransport) SDPSearch(req types.SDPSearchReq) error {
	m.mu.Lock()
	m.SearchCalls = append(m.SearchCalls, req)
	m.mu.Unlock()

	if m.SDPSearchFunc != nil {
		return m.SDPSearchFunc(req)
	}
	return nil
}

// CloseSDPSession 关闭会话
func (m *MockTransport) CloseSDPSession(session types.SDPSessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseSessionCalls = append(m.CloseSessionCalls, session)
	delete(m.open, session)
}

// SearchCount 返回 SDPSearch 调用次数
func (m *MockTransport) SearchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SearchCalls)
}

// OpenSessions 返回未关闭的会话数
func (m *MockTransport) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// ============================================================================
// DataPath
// ============================================================================

// SinkForConnection 返回连接对应的写端
func (m *MockTransport) SinkForConnection(id types.ConnectionID) types.Sink {
	if m.SinkForConnectionFunc != nil {
		return m.SinkForConnectionFunc(id)
	}
	return types.Sink(uint16(id) &^ 0x8000)
}

// SourceFromSink 返回写端配对的读端
func (m *MockTransport) SourceFromSink(sink types.Sink) types.Source {
	if !sink.IsValid() {
		return types.SourceInvalid
	}
	return types.Source(uint16(sink) | 0x8000)
}

// SinkFromSource 返回读端配对的写端
func (m *MockTransport) SinkFromSource(source types.Source) types.Sink {
	if !source.IsValid() {
		return types.SinkInvalid
	}
	return types.Sink(uint16(source) &^ 0x8000)
}

// EnableNotifications 切换为消息通知模式
func (m *MockTransport) EnableNotifications(sink types.Sink, source types.Source) error {
	m.mu.Lock()
	m.EnableCalls = append(m.EnableCalls, SinkSource{Sink: sink, Source: source})
	m.mu.Unlock()

	if m.EnableNotificationsFunc != nil {
		return m.EnableNotificationsFunc(sink, source)
	}
	return nil
}

// SetHandoverPolicy 设置读端移交策略
func (m *MockTransport) SetHandoverPolicy(source types.Source, policy types.HandoverPolicy) error {
	m.mu.Lock()
	m.HandoverCalls = append(m.HandoverCalls, HandoverCall{Source: source, Policy: policy})
	m.mu.Unlock()

	if m.SetHandoverPolicyFunc != nil {
		return m.SetHandoverPolicyFunc(source, policy)
	}
	return nil
}

// DisposeSource 释放读端
func (m *MockTransport) DisposeSource(source types.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DisposeSourceCalls = append(m.DisposeSourceCalls, source)
}

// 确保实现接口
var _ interfaces.Transport = (*MockTransport)(nil)
