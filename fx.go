package l2cap

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-l2cap/config"
	"github.com/dep2p/go-l2cap/internal/core/eventbus"
	"github.com/dep2p/go-l2cap/internal/core/l2capmgr"
	"github.com/dep2p/go-l2cap/internal/core/metrics"
	"github.com/dep2p/go-l2cap/internal/core/storage"
	"github.com/dep2p/go-l2cap/internal/core/transport"
	"github.com/dep2p/go-l2cap/internal/core/transport/sim"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
)

var fxLogger = log.Logger("l2cap/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：EventBus → Metrics → Storage → Transport → L2capManager。
// 管理器在构建时创建并接管传输层事件，传输层在 Start 时才开始投递。
func buildFxApp(cfg *config.Config, o *options, node *Node) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置与共享依赖注入
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(cfg),
	}
	if o.clock != nil {
		clk := o.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return clk }))
	}
	if o.registry != nil {
		modules = append(modules, fx.Supply(o.registry))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 组件
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		eventbus.Module(),
		metrics.Module(),
		storage.Module(),   // 未启用缓存时提供 nil PSMCache
		transport.Module(), // 模拟传输
		l2capmgr.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 3. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. Node 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectNodeComponents(node)))

	// ════════════════════════════════════════════════════════════════════════
	// 5. Fx 日志
	// ════════════════════════════════════════════════════════════════════════
	fxZap := zap.NewNop()
	if cfg.Log.FxEvents {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("create fx logger: %w", err)
		}
		fxZap = dev
	}
	modules = append(modules, fx.WithLogger(func() fxevent.Logger {
		return &fxevent.ZapLogger{Logger: fxZap}
	}))

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		fxLogger.Error("Fx 应用构建失败", "error", err)
		return nil, err
	}
	return app, nil
}

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	Manager    *l2capmgr.Manager
	Controller *sim.Controller
	Bus        *eventbus.Bus
	Counters   *metrics.Counters
	Gatherer   prometheus.Gatherer
	Storage    *storage.Storage
}

// injectNodeComponents 创建 Node 组件注入函数
func injectNodeComponents(node *Node) interface{} {
	return func(p nodeInjectParams) {
		node.manager = p.Manager
		node.controller = p.Controller
		node.bus = p.Bus
		node.counters = p.Counters
		node.gatherer = p.Gatherer
		node.storage = p.Storage
	}
}
