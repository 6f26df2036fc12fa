package config

import "errors"

// SimConfig 模拟传输配置
type SimConfig struct {
	// Latency 每个事件的投递延迟
	Latency Duration `json:"latency"`

	// EventsPerSecond 事件投递速率上限，0 表示不限制
	EventsPerSecond float64 `json:"events_per_second"`

	// Burst 速率限制的突发量
	Burst int `json:"burst"`

	// MTU 模拟链路报告的远端 MTU
	MTU uint16 `json:"mtu"`
}

// DefaultSimConfig 返回默认的模拟传输配置
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Latency:         Duration(0),
		EventsPerSecond: 0,
		Burst:           16,
		MTU:             672,
	}
}

// Validate 验证模拟传输配置
func (c *SimConfig) Validate() error {
	if c.Latency < 0 {
		return errors.New("sim: latency must not be negative")
	}
	if c.EventsPerSecond < 0 {
		return errors.New("sim: events_per_second must not be negative")
	}
	if c.EventsPerSecond > 0 && c.Burst <= 0 {
		return errors.New("sim: burst must be positive when rate limited")
	}
	if c.MTU < 48 {
		return errors.New("sim: mtu below L2CAP minimum (48)")
	}
	return nil
}
