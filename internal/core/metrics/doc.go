// Package metrics 提供连接管理器的指标记录
//
// 两种 interfaces.MetricsRecorder 实现：
//   - Counters：进程内原子计数器，附带最近 60 秒的连接速率，用于日志与诊断快照
//   - Collector：Prometheus 指标，由 Handler 以 /metrics 导出
//
// Tee 把同一组调用分发给多个记录器。Fx 模块按 MetricsConfig.Enabled
// 决定是否注册 Prometheus 指标，Counters 始终可用。
package metrics
