package sim

import (
	"time"

	"github.com/dep2p/go-l2cap/config"
)

// Config 模拟传输配置
type Config struct {
	// Latency 每个事件的投递延迟
	Latency time.Duration

	// EventsPerSecond 请求速率上限，0 表示不限制
	EventsPerSecond float64

	// Burst 令牌桶容量
	Burst int

	// MaxCreditWait 等待命令额度的上限，超过时请求返回 ErrBusy，0 表示一直排队
	MaxCreditWait time.Duration

	// MTU 链路报告的远端 MTU
	MTU uint16
}

// DefaultConfig 返回默认配置：无延迟、不限速
func DefaultConfig() Config {
	return Config{Burst: 16, MTU: 672}
}

// ConfigFromUnified 从统一配置创建模拟传输配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.Latency = cfg.Sim.Latency.Duration()
	c.EventsPerSecond = cfg.Sim.EventsPerSecond
	if cfg.Sim.Burst > 0 {
		c.Burst = cfg.Sim.Burst
	}
	if cfg.Sim.MTU > 0 {
		c.MTU = cfg.Sim.MTU
	}
	return c
}
