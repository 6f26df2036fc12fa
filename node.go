package l2cap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-l2cap/config"
	"github.com/dep2p/go-l2cap/internal/core/eventbus"
	"github.com/dep2p/go-l2cap/internal/core/l2capmgr"
	"github.com/dep2p/go-l2cap/internal/core/metrics"
	"github.com/dep2p/go-l2cap/internal/core/storage"
	"github.com/dep2p/go-l2cap/internal/core/transport/sim"
	pkgif "github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
)

var logger = log.Logger("l2cap")

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota

	// StateStarting Fx 应用启动中
	StateStarting

	// StateRunning 运行中
	StateRunning

	// StateStopping 正在关闭组件
	StateStopping

	// StateStopped 已停止
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// startTimeout Fx App Start 超时
	startTimeout = 30 * time.Second

	// stopTimeout Fx App Stop 超时
	stopTimeout = 10 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Node
// ════════════════════════════════════════════════════════════════════════════

// Node 组装好的连接管理器
//
// 通过 New 创建后调用 Start 启动；Close 之后不能重新启动。
type Node struct {
	mu    sync.Mutex
	state NodeState

	cfg *config.Config
	app *fx.App

	// 由 Fx 注入
	manager    *l2capmgr.Manager
	controller *sim.Controller
	bus        *eventbus.Bus
	counters   *metrics.Counters
	gatherer   prometheus.Gatherer
	storage    *storage.Storage
}

// New 创建节点，不启动
func New(opts ...Option) (*Node, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	cfg, err := o.toConfig()
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	o.setupLog(cfg)

	n := &Node{cfg: cfg}
	app, err := buildFxApp(cfg, o, n)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	n.app = app
	logger.Debug("节点已创建",
		"cache", cfg.Manager.EnableSDPCache,
		"persistent", cfg.Storage.Enabled,
		"metrics", cfg.Metrics.Enabled)
	return n, nil
}

// Start 创建并启动节点
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	n, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := n.Start(ctx); err != nil {
		return nil, multierr.Append(err, n.Close())
	}
	return n, nil
}

// Start 启动所有组件
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateIdle:
	case StateStopping, StateStopped:
		return ErrNodeClosed
	default:
		return ErrAlreadyStarted
	}

	n.state = StateStarting
	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := n.app.Start(startCtx); err != nil {
		logger.Error("节点启动失败", "error", err)
		// Start 失败时 Fx 已回滚已启动的组件
		n.state = StateStopped
		return multierr.Append(fmt.Errorf("start failed: %w", err), n.closeComponents())
	}
	n.state = StateRunning
	logger.Info("节点已启动")
	return nil
}

// Close 停止所有组件，可重复调用
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateStopping, StateStopped:
		return nil
	case StateIdle:
		// 未启动时 OnStop 不会执行，直接关闭构建时已创建的组件
		n.state = StateStopped
		return n.closeComponents()
	}

	n.state = StateStopping
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	err := n.app.Stop(ctx)
	n.state = StateStopped
	if err != nil {
		logger.Warn("节点关闭出错", "error", err)
		return err
	}
	logger.Info("节点已关闭")
	return nil
}

// closeComponents 按依赖的相反顺序关闭组件，各组件的 Close 可重复调用
func (n *Node) closeComponents() error {
	var err error
	if n.manager != nil {
		err = multierr.Append(err, n.manager.Close())
	}
	if n.controller != nil {
		err = multierr.Append(err, n.controller.Close())
	}
	if n.storage != nil {
		err = multierr.Append(err, n.storage.Close())
	}
	if n.bus != nil {
		err = multierr.Append(err, n.bus.Close())
	}
	return err
}

// State 返回节点状态
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Config 返回节点配置的副本
func (n *Node) Config() *config.Config {
	return config.CloneConfig(n.cfg)
}

// Manager 返回连接管理器
func (n *Node) Manager() pkgif.L2capManager {
	return n.manager
}

// Simulator 返回模拟传输，用于添加远端设备与注入事件
func (n *Node) Simulator() *sim.Controller {
	return n.controller
}

// EventBus 返回事件总线
func (n *Node) EventBus() pkgif.EventBus {
	return n.bus
}

// Gatherer 返回指标注册表
func (n *Node) Gatherer() prometheus.Gatherer {
	return n.gatherer
}

// Counters 返回进程内计数器快照
func (n *Node) Counters() metrics.Snapshot {
	return n.counters.Snapshot()
}
