package l2capmgr

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
	"github.com/dep2p/go-l2cap/pkg/types"
)

var logger = log.Logger("core/l2capmgr")

// Manager L2CAP 连接管理器
type Manager struct {
	cfg     Config
	tr      interfaces.Transport
	clock   clock.Clock
	metrics interfaces.MetricsRecorder
	cache   interfaces.PSMCache
	events  *emitters

	loop *loop
	reg  *registry

	closeOnce sync.Once
}

var _ interfaces.L2capManager = (*Manager)(nil)

// Option 管理器选项
type Option func(*Manager)

// WithEventBus 把状态变化发布到事件总线
func WithEventBus(bus interfaces.EventBus) Option {
	return func(m *Manager) {
		if bus != nil {
			m.events = newEmitters(bus)
		}
	}
}

// WithMetrics 设置指标记录器
func WithMetrics(r interfaces.MetricsRecorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.metrics = r
		}
	}
}

// WithPSMCache 设置远端 PSM 发现缓存
func WithPSMCache(c interfaces.PSMCache) Option {
	return func(m *Manager) {
		m.cache = c
	}
}

// WithClock 设置时钟，测试中使用 clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// New 创建连接管理器并启动事件循环
//
// 管理器把自己设置为 tr 的事件接收者。
func New(cfg Config, tr interfaces.Transport, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidConfig)
	}

	m := &Manager{
		cfg:     cfg,
		tr:      tr,
		clock:   clock.New(),
		metrics: nopMetrics{},
		loop:    newLoop(cfg.InboxSize),
		reg:     newRegistry(cfg.MaxPSMInstances, cfg.MaxLinksPerPSM),
	}
	for _, opt := range opts {
		opt(m)
	}

	tr.SetEventHandler(m)
	go m.loop.run()

	logger.Debug("连接管理器已启动",
		"maxPSMs", cfg.MaxPSMInstances,
		"maxLinksPerPSM", cfg.MaxLinksPerPSM)
	return m, nil
}

// ============================================================================
//                              公共接口
// ============================================================================

// Register 注册本地 PSM
//
// psm 为 types.PSMDynamic 时由传输层分配。注册结果通过
// fns.Registered 异步通知。ProcessMoreData 与 ProcessMoreSpace
// 不成对时 panic。
func (m *Manager) Register(psm types.PSM, fns interfaces.Functions) (types.InstanceID, error) {
	if !fns.FlowPaired() {
		fatalf("Register", "ProcessMoreData and ProcessMoreSpace must be set together")
	}

	id := types.InstanceIDInvalid
	var opErr error
	err := m.loop.call(context.Background(), func() {
		id, opErr = m.register(psm, fns)
	})
	if err != nil {
		return types.InstanceIDInvalid, err
	}
	return id, opErr
}

// RegisterClient 以接口形式的客户端注册本地 PSM
func (m *Manager) RegisterClient(psm types.PSM, c interfaces.Client) (types.InstanceID, error) {
	return m.Register(psm, interfaces.FunctionsFor(c))
}

// Connect 连接对端
//
// 远端 PSM 未知时先发起 SDP 搜索。结果通过 HandleConnectCfm 通知，
// 对已存在的活动链路只更新上下文。链路仍在断开时返回 ErrLinkBusy。
func (m *Manager) Connect(peer types.TypedAddr, instance types.InstanceID, ctx any) error {
	var opErr error
	if err := m.loop.call(context.Background(), func() {
		opErr = m.connect(peer, instance, ctx)
	}); err != nil {
		return err
	}
	return opErr
}

// Disconnect 断开写端对应的链路
func (m *Manager) Disconnect(sink types.Sink, instance types.InstanceID) error {
	var opErr error
	if err := m.loop.call(context.Background(), func() {
		opErr = m.disconnect(sink, instance)
	}); err != nil {
		return err
	}
	return opErr
}

// IsConnected 对端链路是否存在且处于活动状态
func (m *Manager) IsConnected(peer types.TypedAddr, instance types.InstanceID) bool {
	var connected bool
	if err := m.loop.call(context.Background(), func() {
		p := m.mustPSM("IsConnected", instance)
		l := p.linkByAddr(peer)
		connected = l != nil && l.state.IsActive()
	}); err != nil {
		return false
	}
	return connected
}

// Deliver 处理一个传输事件
func (m *Manager) Deliver(ctx context.Context, ev types.TransportEvent) error {
	return m.loop.call(ctx, func() {
		m.dispatch(ev)
	})
}

// Snapshot 返回所有 PSM 实例的诊断快照
func (m *Manager) Snapshot(ctx context.Context) ([]types.PSMInfo, error) {
	var out []types.PSMInfo
	err := m.loop.call(ctx, func() {
		out = make([]types.PSMInfo, 0, len(m.reg.psms))
		for _, p := range m.reg.psms {
			out = append(out, p.info())
		}
	})
	return out, err
}

// Close 关闭管理器
//
// 关闭所有打开的 SDP 会话并释放全部实例。重复调用返回 nil。
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		err = m.loop.call(context.Background(), m.shutdown)
		m.loop.stop()
		if m.events != nil {
			err = multierr.Append(err, m.events.close())
		}
		logger.Debug("连接管理器已关闭")
	})
	return err
}

func (m *Manager) shutdown() {
	for _, p := range m.reg.psms {
		if p.sdpSession != types.SDPSessionInvalid {
			m.tr.CloseSDPSession(p.sdpSession)
			p.sdpSession = types.SDPSessionInvalid
		}
		m.stopRetry(p)
		p.searching = nil
		p.sdpQueue = nil
		p.links = nil
		p.numLinks = 0
	}
	m.reg.psms = nil
	m.metrics.LinksActive(0)
}

// ============================================================================
//                              内部辅助
// ============================================================================

// dispatch 按事件类型分发
func (m *Manager) dispatch(ev types.TransportEvent) {
	switch e := ev.(type) {
	case types.RegisterPSMCfm:
		m.handleRegisterPSMCfm(e)
	case types.RegisterRecordCfm:
		m.handleRegisterRecordCfm(e)
	case types.L2caConnectCfm:
		m.handleConnected("ConnectCfm", connectedEvent(e))
	case types.L2caConnectAcceptInd:
		m.handleConnectAcceptInd(e)
	case types.L2caConnectAcceptCfm:
		m.handleConnected("ConnectAcceptCfm", connectedEvent(e))
	case types.L2caDisconnectInd:
		m.handleDisconnectInd(e)
	case types.SDPSearchResult:
		m.handleSDPSearchResult(e)
	case types.MoreData:
		m.handleMoreData(e)
	case types.MoreSpace:
		m.handleMoreSpace(e)
	default:
		logger.Warn("未知传输事件", "type", fmt.Sprintf("%T", ev))
	}
}

// mustPSM 按标识查找 PSM 实例，不存在时为致命错误
func (m *Manager) mustPSM(op string, id types.InstanceID) *psmInstance {
	p := m.reg.psmByID(id)
	if p == nil {
		fatalf(op, "unknown psm instance %s", id)
	}
	return p
}

// setPSMState 切换 PSM 状态并发布事件
func (m *Manager) setPSMState(p *psmInstance, state types.PSMState) {
	if p.state == state {
		return
	}
	old := p.state
	p.state = state
	logger.Debug("PSM 状态变化", "instance", p.id, "psm", p.localPSM, "from", old, "to", state)
	m.events.psmStateChanged(p, old)
}

// setLinkState 切换链路状态并发布事件
func (m *Manager) setLinkState(p *psmInstance, l *linkInstance, state types.LinkState) {
	if l.state == state {
		return
	}
	old := l.state
	l.state = state
	logger.Debug("链路状态变化", "link", l.id, "peer", l.peer, "from", old, "to", state)
	m.events.linkStateChanged(p, l, old, false)
}

// dropLink 从注册表删除链路
func (m *Manager) dropLink(op string, p *psmInstance, l *linkInstance) {
	if !p.removeLink(l) {
		fatalf(op, "link %s not in %s", l.id, p.id)
	}
	p.dequeue(l)
	if p.searching == l {
		p.searching = nil
		m.stopRetry(p)
	}
	old := l.state
	l.state = types.LinkStateDisconnected
	m.events.linkStateChanged(p, l, old, true)
	m.metrics.LinksActive(m.reg.totalLinks())
}

func (p *psmInstance) info() types.PSMInfo {
	info := types.PSMInfo{
		ID:                 p.id,
		State:              p.state,
		LocalPSM:           p.localPSM,
		RemotePSM:          p.remotePSM,
		ServiceHandle:      p.serviceHandle,
		PendingConnections: p.pending,
		SDPSearchAttempts:  p.sdpAttempts,
		SDPMaxRetries:      p.sdpMaxRetries,
		SDPSessionOpen:     p.sdpSession != types.SDPSessionInvalid,
		SDPQueued:          len(p.sdpQueue),
		NumLinks:           p.numLinks,
		Links:              make([]types.LinkInfo, 0, len(p.links)),
	}
	for _, l := range p.links {
		info.Links = append(info.Links, types.LinkInfo{
			ID:           l.id,
			Peer:         l.peer,
			State:        l.state,
			ConnectionID: l.connID,
			Identifier:   l.identifier,
			Sink:         l.sink,
			Source:       l.source,
			MTURemote:    l.mtuRemote,
		})
	}
	return info
}
