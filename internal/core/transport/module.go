package transport

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-l2cap/config"
	"github.com/dep2p/go-l2cap/internal/core/transport/sim"
	pkgif "github.com/dep2p/go-l2cap/pkg/interfaces"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
)

var logger = log.Logger("core/transport")

// Params 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
}

// Output Fx 输出
type Output struct {
	fx.Out

	Controller *sim.Controller
	Transport  pkgif.Transport
}

// Module 返回 Fx 模块
//
// 生命周期:
//   - OnStart: 开始投递事件
//   - OnStop: 停止投递并丢弃未投递的事件
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransport),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideTransport 创建模拟控制器
func ProvideTransport(p Params) Output {
	cfg := sim.ConfigFromUnified(p.UnifiedCfg)
	c := sim.New(cfg, sim.WithClock(p.Clock))
	logger.Debug("模拟传输已创建", "latency", cfg.Latency, "rate", cfg.EventsPerSecond, "mtu", cfg.MTU)
	return Output{Controller: c, Transport: c}
}

func registerLifecycle(lc fx.Lifecycle, c *sim.Controller) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return c.Start()
		},
		OnStop: func(_ context.Context) error {
			st := c.Stats()
			logger.Info("模拟传输已停止", "requests", st.Requests, "delivered", st.Delivered, "dropped", st.Dropped)
			return c.Close()
		},
	})
}
