package metrics

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-l2cap/config"
	pkgif "github.com/dep2p/go-l2cap/pkg/interfaces"
)

// Config 指标配置
type Config struct {
	// Enabled 是否注册 Prometheus 指标
	Enabled bool

	// Namespace 指标名前缀
	Namespace string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{Enabled: true, Namespace: "l2cap"}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Enabled:   cfg.Metrics.Enabled,
		Namespace: cfg.Metrics.Namespace,
	}
}

// Params 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config       `optional:"true"`
	Registry   *prometheus.Registry `optional:"true"`
	Clock      clock.Clock          `optional:"true"`
}

// Result 输出
type Result struct {
	fx.Out

	Counters  *Counters
	Collector *Collector
	Gatherer  prometheus.Gatherer
	Recorder  pkgif.MetricsRecorder
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(Provide),
		fx.Invoke(registerLifecycle),
	)
}

// Provide 创建计数器；启用时同时创建 Prometheus 指标并注册
//
// 未注入 Registry 时使用独立的 prometheus.NewRegistry()。
func Provide(p Params) (Result, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	counters := NewCounters(p.Clock)
	reg := p.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	out := Result{Counters: counters, Gatherer: reg, Recorder: counters}
	if !cfg.Enabled {
		return out, nil
	}

	col := NewCollector(cfg.Namespace)
	if err := col.Register(reg); err != nil {
		return Result{}, err
	}
	out.Collector = col
	out.Recorder = Tee{counters, col}
	return out, nil
}

type lifecycleInput struct {
	fx.In

	LC       fx.Lifecycle
	Counters *Counters
}

func registerLifecycle(in lifecycleInput) {
	in.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			in.Counters.LogSnapshot()
			return nil
		},
	})
}
