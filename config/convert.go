package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值。
//
// 示例 JSON:
//
//	{
//	  "manager": {"max_links_per_psm": 4, "sdp_retry_delay": "200ms"},
//	  "storage": {"enabled": true, "data_dir": "/var/lib/l2capd"},
//	  "metrics": {"listen_addr": ":9464"}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Load 从文件加载并验证配置
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "default": 不做修改
//   - "minimal": 关闭指标与持久化
//   - "test": 内存存储、无延迟、注册失败不 panic
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case "", "default":
		return nil
	case "minimal":
		cfg.Metrics.Enabled = false
		cfg.Metrics.ListenAddr = ""
		cfg.Storage.Enabled = false
		cfg.Manager.EnableSDPCache = false
		return nil
	case "test":
		cfg.Manager.FatalOnRegistrationFailure = false
		cfg.Manager.SDPRetryDelay = Duration(0)
		cfg.Storage.InMemory = true
		cfg.Storage.TTL = Duration(time.Hour)
		cfg.Sim.Latency = Duration(0)
		cfg.Sim.EventsPerSecond = 0
		cfg.Log.Level = "warn"
		return nil
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
}

// CloneConfig 克隆配置
//
// 所有子配置都是值类型，浅拷贝即为深拷贝。
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	cloned := *cfg
	return &cloned
}
