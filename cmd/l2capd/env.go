package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dep2p/go-l2cap/config"
)

// 环境变量，均使用 L2CAP_ 前缀
const (
	envPrefix      = "L2CAP_"
	envPreset      = "PRESET"
	envMetricsAddr = "METRICS_ADDR"
	envLogLevel    = "LOG_LEVEL"
	envSimLatency  = "SIM_LATENCY"
	envSDPCache    = "SDP_CACHE"
	envDataDir     = "DATA_DIR"
)

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。
func applyEnvOverrides(cfg *config.Config) error {
	if v := os.Getenv(envPrefix + envMetricsAddr); v != "" {
		cfg.Metrics.ListenAddr = v
	}
	if v := os.Getenv(envPrefix + envLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(envPrefix + envSimLatency); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, envSimLatency, err)
		}
		cfg.Sim.Latency = config.Duration(d)
	}
	if v := os.Getenv(envPrefix + envSDPCache); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, envSDPCache, err)
		}
		cfg.Manager.EnableSDPCache = b
	}
	if v := os.Getenv(envPrefix + envDataDir); v != "" {
		cfg.Storage.DataDir = v
		cfg.Storage.Enabled = true
	}
	return nil
}
