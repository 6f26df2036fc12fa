// Package main 提供 l2capd 命令行入口
//
// l2capd 在模拟传输上运行连接管理器：注册一个 PSM，连接若干模拟
// 远端，注入数据后断开，并可通过 HTTP 导出 Prometheus 指标。
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-l2cap"
	"github.com/dep2p/go-l2cap/config"
	"github.com/dep2p/go-l2cap/internal/core/metrics"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
)

var logger = log.Logger("l2capd")

var (
	configFile  = flag.String("config", "", "配置文件路径")
	preset      = flag.String("preset", "default", "预设配置 (default/minimal/test)")
	metricsAddr = flag.String("metrics-addr", "", "/metrics 监听地址，如 127.0.0.1:9464")
	peers       = flag.Int("peers", 3, "模拟远端数量")
	latency     = flag.Duration("latency", 0, "模拟传输的事件延迟")
	hold        = flag.Duration("hold", 0, "断开前保持连接的时间")
	stay        = flag.Bool("stay", false, "场景结束后继续运行直到收到退出信号")
	logLevel    = flag.String("log-level", "", "日志级别 (debug/info/warn/error)")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()
	if *showVersion {
		fmt.Println(l2cap.VersionInfo())
		return nil
	}

	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger.Info("启动 l2capd", "version", l2cap.Version, "run", runID)

	node, err := l2cap.Start(ctx,
		l2cap.WithConfig(cfg),
		l2cap.WithPreset(*preset),
		l2cap.WithLogOutput(os.Stderr),
	)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	g, gctx := errgroup.WithContext(ctx)
	if addr := cfg.Metrics.ListenAddr; addr != "" {
		serveMetrics(gctx, g, addr, node)
	}

	scenarioDone := make(chan struct{})
	g.Go(func() error {
		defer close(scenarioDone)
		rep, err := runScenario(gctx, node, runID, *peers, *hold)
		if err != nil {
			return fmt.Errorf("场景失败: %w", err)
		}
		return printJSON(struct {
			Report   *report `json:"report"`
			Counters any     `json:"counters"`
		}{rep, node.Counters()})
	})

	// 没有其它长期任务时，场景结束即退出
	g.Go(func() error {
		select {
		case <-scenarioDone:
		case <-gctx.Done():
			return nil
		}
		if !*stay {
			stop()
			return nil
		}
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("l2capd 已退出", "run", runID)
	return nil
}

// buildConfig 配置优先级：命令行 > 环境变量 > 配置文件 > 默认值
func buildConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = loaded
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if v := os.Getenv(envPrefix + envPreset); v != "" && !isFlagSet("preset") {
		*preset = v
	}
	if isFlagSet("metrics-addr") {
		cfg.Metrics.ListenAddr = *metricsAddr
	}
	if isFlagSet("latency") {
		cfg.Sim.Latency = config.Duration(*latency)
	}
	if isFlagSet("log-level") {
		cfg.Log.Level = *logLevel
	}
	// 所有远端都由本端发起连接
	if cfg.Manager.MaxLinksPerPSM < *peers {
		cfg.Manager.MaxLinksPerPSM = *peers
	}
	return cfg, cfg.Validate()
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// serveMetrics 在 addr 上导出 /metrics，gctx 结束时关闭
func serveMetrics(gctx context.Context, g *errgroup.Group, addr string, node *l2cap.Node) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(node.Gatherer()))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		logger.Info("指标服务已启动", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
