package l2capmgr

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-l2cap/config"
	pkgif "github.com/dep2p/go-l2cap/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("l2capmgr",
		fx.Provide(
			ConfigFromUnified,
			ProvideManager,
		),
		fx.Invoke(registerLifecycle),
	)
}

// ConfigFromUnified 从统一配置创建管理器配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	m := cfg.Manager
	c.MaxPSMInstances = m.MaxPSMInstances
	c.MaxLinksPerPSM = m.MaxLinksPerPSM
	c.SDPRetryDelay = m.SDPRetryDelay.Duration()
	c.FatalOnRegistrationFailure = m.FatalOnRegistrationFailure
	c.QueueSDPSearches = m.QueueSDPSearches
	c.InboxSize = m.InboxSize
	return c
}

// managerInput 依赖参数
type managerInput struct {
	fx.In

	Config    Config
	Transport pkgif.Transport
	EventBus  pkgif.EventBus        `optional:"true"`
	Metrics   pkgif.MetricsRecorder `optional:"true"`
	Cache     pkgif.PSMCache        `optional:"true"`
	Clock     clock.Clock           `optional:"true"`
}

// managerOutput 输出
type managerOutput struct {
	fx.Out

	Manager      *Manager
	L2capManager pkgif.L2capManager
}

// ProvideManager 创建连接管理器
func ProvideManager(in managerInput) (managerOutput, error) {
	m, err := New(in.Config, in.Transport,
		WithEventBus(in.EventBus),
		WithMetrics(in.Metrics),
		WithPSMCache(in.Cache),
		WithClock(in.Clock),
	)
	if err != nil {
		return managerOutput{}, err
	}
	return managerOutput{Manager: m, L2capManager: m}, nil
}

// registerLifecycle 注册生命周期
//
// 管理器在创建时即启动，停止时关闭并释放所有实例。
func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return m.Close()
		},
	})
}
