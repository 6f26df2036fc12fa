// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载配置
//   - 支持预设配置（default/minimal/test）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Manager.MaxLinksPerPSM = 4
//
//	// 从文件加载
//	cfg, err := config.Load("l2capd.json")
//
//	// 应用预设
//	config.ApplyPreset(cfg, "test")
package config

// Config 是 go-l2cap 的完整配置结构
//
// 配置按照功能模块组织：
//   - Manager: 连接管理器
//   - Storage: 远端 PSM 发现缓存
//   - Metrics: Prometheus 指标
//   - Log: 日志
//   - Sim: 模拟传输
type Config struct {
	// Manager 连接管理器配置
	Manager ManagerConfig `json:"manager"`

	// Storage 发现缓存配置
	Storage StorageConfig `json:"storage"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`

	// Sim 模拟传输配置
	Sim SimConfig `json:"sim"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Manager: DefaultManagerConfig(),
		Storage: DefaultStorageConfig(),
		Metrics: DefaultMetricsConfig(),
		Log:     DefaultLogConfig(),
		Sim:     DefaultSimConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.Manager.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Sim.Validate(); err != nil {
		return err
	}
	return nil
}
