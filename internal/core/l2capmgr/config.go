package l2capmgr

import (
	"fmt"
	"time"
)

// Config 连接管理器配置
type Config struct {
	// MaxPSMInstances 最多同时注册的 PSM 实例数
	MaxPSMInstances int

	// MaxLinksPerPSM 每个 PSM 实例本端发起的链路上限
	//
	// 远端发起的连接不受此限制，以保证每个连接指示都能得到确认。
	MaxLinksPerPSM int

	// SDPRetryDelay SDP 搜索失败后重试前的等待时间，0 表示立即重试
	SDPRetryDelay time.Duration

	// FatalOnRegistrationFailure 注册失败时是否 panic
	//
	// 为 false 时 PSM 进入 RegistrationFailed 状态并以失败状态通知客户端。
	FatalOnRegistrationFailure bool

	// QueueSDPSearches SDP 会话忙时是否把新的搜索排队
	QueueSDPSearches bool

	// InboxSize 事件循环收件箱容量
	InboxSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxPSMInstances:            16,
		MaxLinksPerPSM:             8,
		SDPRetryDelay:              0,
		FatalOnRegistrationFailure: true,
		QueueSDPSearches:           true,
		InboxSize:                  64,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.MaxPSMInstances <= 0 {
		return fmt.Errorf("%w: max psm instances must be positive", ErrInvalidConfig)
	}
	if c.MaxLinksPerPSM <= 0 {
		return fmt.Errorf("%w: max links per psm must be positive", ErrInvalidConfig)
	}
	if c.SDPRetryDelay < 0 {
		return fmt.Errorf("%w: sdp retry delay must not be negative", ErrInvalidConfig)
	}
	if c.InboxSize < 0 {
		return fmt.Errorf("%w: inbox size must not be negative", ErrInvalidConfig)
	}
	return nil
}
