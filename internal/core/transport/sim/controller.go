package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
	"github.com/dep2p/go-l2cap/pkg/types"
)

var logger = log.Logger("transport/sim")

// Controller 模拟控制器
type Controller struct {
	cfg     Config
	clock   clock.Clock
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	handler    interfaces.EventHandler
	started    bool
	closed     bool
	queue      []*pending
	delivering bool
	changed    chan struct{}

	// 本地状态
	localPSMs   map[types.PSM]types.InstanceID
	nextDynamic types.PSM
	records     map[types.ServiceHandle][]byte
	nextHandle  types.ServiceHandle
	sessions    map[types.SDPSessionID]types.InstanceID
	nextSession types.SDPSessionID

	// 链路
	conns      map[types.ConnectionID]*conn
	nextConn   types.ConnectionID
	nextIdent  types.Identifier
	incoming   map[types.ConnectionID]*conn
	peers      map[types.TypedAddr]*Peer
	disposed   []types.Source
	disconnRsp []types.DisconnectRsp

	stats struct {
		requests  atomic.Uint64
		delivered atomic.Uint64
		dropped   atomic.Uint64
	}
}

// pending 等待投递的事件
type pending struct {
	ev    types.TransportEvent
	ready bool
	timer *clock.Timer
}

// conn 一条模拟链路
type conn struct {
	id        types.ConnectionID
	localPSM  types.PSM
	peer      types.TypedAddr
	ident     types.Identifier
	notify    bool
	policy    types.HandoverPolicy
	closing   bool
	remoteEnd bool
}

func (c *conn) sink() types.Sink {
	return types.Sink(uint16(c.id) &^ 0x8000)
}

func (c *conn) source() types.Source {
	return types.Source(uint16(c.id) | 0x8000)
}

// Option 控制器选项
type Option func(*Controller)

// WithClock 设置时钟，测试中使用 clock.NewMock()
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// New 创建模拟控制器
func New(cfg Config, opts ...Option) *Controller {
	if cfg.MTU == 0 {
		cfg.MTU = DefaultConfig().MTU
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:         cfg,
		clock:       clock.New(),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		changed:     make(chan struct{}),
		localPSMs:   make(map[types.PSM]types.InstanceID),
		nextDynamic: types.PSMDynamicMin,
		records:     make(map[types.ServiceHandle][]byte),
		nextHandle:  0x00010000,
		sessions:    make(map[types.SDPSessionID]types.InstanceID),
		nextSession: 1,
		conns:       make(map[types.ConnectionID]*conn),
		nextConn:    connIDFirst,
		incoming:    make(map[types.ConnectionID]*conn),
		peers:       make(map[types.TypedAddr]*Peer),
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.EventsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.EventsPerSecond), burst)
	}
	return c
}

// SetEventHandler 设置事件接收者
func (c *Controller) SetEventHandler(h interfaces.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Start 启动事件投递
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}
	c.started = true
	go c.run()
	logger.Debug("模拟控制器已启动", "latency", c.cfg.Latency, "rate", c.cfg.EventsPerSecond)
	return nil
}

// Close 停止投递并丢弃未投递的事件
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	for _, p := range c.queue {
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	dropped := len(c.queue)
	c.queue = nil
	c.signalLocked()
	c.mu.Unlock()

	c.cancel()
	if started {
		<-c.done
	}
	c.stats.dropped.Add(uint64(dropped))
	logger.Debug("模拟控制器已关闭", "dropped", dropped)
	return nil
}

// Flush 等待所有已就绪的事件投递完毕
//
// 尚未到达投递时间的事件会一直等到 ctx 结束。
func (c *Controller) Flush(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		if len(c.queue) == 0 && !c.delivering {
			c.mu.Unlock()
			return nil
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stats 投递统计
type Stats struct {
	Requests  uint64
	Delivered uint64
	Dropped   uint64
	Pending   int
	Links     int
}

// Stats 返回投递统计
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	pendingN, links := len(c.queue), len(c.conns)
	c.mu.Unlock()
	return Stats{
		Requests:  c.stats.requests.Load(),
		Delivered: c.stats.delivered.Load(),
		Dropped:   c.stats.dropped.Load(),
		Pending:   pendingN,
		Links:     links,
	}
}

// ============================================================================
//                              投递队列
// ============================================================================

// admitLocked 为一次请求消耗命令额度，返回额外的排队延迟
func (c *Controller) admitLocked() (time.Duration, error) {
	if c.closed {
		return 0, ErrClosed
	}
	c.stats.requests.Add(1)
	if c.limiter == nil {
		return 0, nil
	}
	now := c.clock.Now()
	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return 0, ErrBusy
	}
	d := r.DelayFrom(now)
	if c.cfg.MaxCreditWait > 0 && d > c.cfg.MaxCreditWait {
		r.CancelAt(now)
		return 0, ErrBusy
	}
	return d, nil
}

// enqueueLocked 把事件加入投递队列
func (c *Controller) enqueueLocked(ev types.TransportEvent, extra time.Duration) {
	p := &pending{ev: ev}
	c.queue = append(c.queue, p)

	d := c.cfg.Latency + extra
	if d <= 0 {
		p.ready = true
		c.signalLocked()
		return
	}
	p.timer = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		p.ready = true
		c.signalLocked()
	})
}

func (c *Controller) signalLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// run 按顺序投递事件，队首未就绪时后续事件等待
func (c *Controller) run() {
	defer close(c.done)
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		if len(c.queue) > 0 && c.queue[0].ready {
			p := c.queue[0]
			c.queue = c.queue[1:]
			ev, h, ok := c.prepareLocked(p.ev)
			c.delivering = ok
			c.mu.Unlock()

			if ok {
				c.deliver(h, ev)
				c.mu.Lock()
				c.delivering = false
				c.signalLocked()
				c.mu.Unlock()
			}
			continue
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ch:
		case <-c.ctx.Done():
			return
		}
	}
}

// prepareLocked 投递前的最后检查，返回 false 表示丢弃
func (c *Controller) prepareLocked(ev types.TransportEvent) (types.TransportEvent, interfaces.EventHandler, bool) {
	drop := func(reason string) (types.TransportEvent, interfaces.EventHandler, bool) {
		c.stats.dropped.Add(1)
		c.signalLocked()
		logger.Debug("丢弃事件", "reason", reason, "event", eventName(ev))
		return nil, nil, false
	}

	if c.handler == nil {
		return drop("no handler")
	}
	if r, ok := ev.(types.SDPSearchResult); ok {
		// 会话关闭时取消搜索
		if _, open := c.sessions[r.Session]; !open {
			return drop("session closed")
		}
	}
	if d, ok := ev.(types.L2caDisconnectInd); ok && d.LocalTerminated {
		delete(c.conns, d.ConnectionID)
	}
	return ev, c.handler, true
}

func (c *Controller) deliver(h interfaces.EventHandler, ev types.TransportEvent) {
	if err := h.Deliver(c.ctx, ev); err != nil {
		c.stats.dropped.Add(1)
		logger.Debug("事件投递失败", "event", eventName(ev), "error", err)
		return
	}
	c.stats.delivered.Add(1)
}

func eventName(ev types.TransportEvent) string {
	switch ev.(type) {
	case types.RegisterPSMCfm:
		return "RegisterPSMCfm"
	case types.RegisterRecordCfm:
		return "RegisterRecordCfm"
	case types.L2caConnectCfm:
		return "ConnectCfm"
	case types.L2caConnectAcceptInd:
		return "ConnectAcceptInd"
	case types.L2caConnectAcceptCfm:
		return "ConnectAcceptCfm"
	case types.L2caDisconnectInd:
		return "DisconnectInd"
	case types.SDPSearchResult:
		return "SDPSearchResult"
	case types.MoreData:
		return "MoreData"
	case types.MoreSpace:
		return "MoreSpace"
	default:
		return "unknown"
	}
}

// 连接标识取值范围，写端与读端分别为 id 与 id|0x8000
const (
	connIDFirst types.ConnectionID = 0x40
	connIDLast  types.ConnectionID = 0x7FFF
)

// allocConnLocked 在 connIDFirst..connIDLast 内循环分配连接标识，跳过已占用的值
//
// 全部占用时返回 false。
func (c *Controller) allocConnLocked() (types.ConnectionID, bool) {
	for n := connIDLast - connIDFirst + 1; n > 0; n-- {
		id := c.nextConn
		if id < connIDFirst || id > connIDLast {
			id = connIDFirst
		}
		c.nextConn = id + 1
		_, used := c.conns[id]
		_, pend := c.incoming[id]
		if !used && !pend {
			return id, true
		}
	}
	return types.ConnectionIDInvalid, false
}

func (c *Controller) allocIdentLocked() types.Identifier {
	c.nextIdent++
	if c.nextIdent == 0 {
		c.nextIdent = 1
	}
	return c.nextIdent
}

var _ interfaces.Transport = (*Controller)(nil)
