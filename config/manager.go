package config

import (
	"errors"
	"time"
)

// ManagerConfig 连接管理器配置
type ManagerConfig struct {
	// MaxPSMInstances 最多同时注册的 PSM 数
	MaxPSMInstances int `json:"max_psm_instances"`

	// MaxLinksPerPSM 每个 PSM 本端发起的链路上限
	MaxLinksPerPSM int `json:"max_links_per_psm"`

	// SDPRetryDelay SDP 搜索重试间隔，0 表示立即重试
	SDPRetryDelay Duration `json:"sdp_retry_delay"`

	// FatalOnRegistrationFailure 注册失败是否视为致命错误
	FatalOnRegistrationFailure bool `json:"fatal_on_registration_failure"`

	// QueueSDPSearches SDP 会话忙时是否排队
	QueueSDPSearches bool `json:"queue_sdp_searches"`

	// EnableSDPCache 是否使用远端 PSM 发现缓存
	EnableSDPCache bool `json:"sdp_cache"`

	// InboxSize 事件循环收件箱容量
	InboxSize int `json:"inbox_size"`
}

// DefaultManagerConfig 返回默认的连接管理器配置
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxPSMInstances:            16,
		MaxLinksPerPSM:             8,
		SDPRetryDelay:              Duration(0),
		FatalOnRegistrationFailure: true,
		QueueSDPSearches:           true,
		EnableSDPCache:             false,
		InboxSize:                  64,
	}
}

// Validate 验证连接管理器配置
func (c *ManagerConfig) Validate() error {
	if c.MaxPSMInstances <= 0 {
		return errors.New("manager: max_psm_instances must be positive")
	}
	if c.MaxLinksPerPSM <= 0 {
		return errors.New("manager: max_links_per_psm must be positive")
	}
	if c.SDPRetryDelay < 0 {
		return errors.New("manager: sdp_retry_delay must not be negative")
	}
	if c.SDPRetryDelay.Duration() > time.Minute {
		return errors.New("manager: sdp_retry_delay too large (max 1m)")
	}
	if c.InboxSize < 0 {
		return errors.New("manager: inbox_size must not be negative")
	}
	return nil
}
