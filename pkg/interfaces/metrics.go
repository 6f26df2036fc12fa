// Package interfaces 定义 go-l2cap 公共接口
//
// 本文件定义指标记录接口。
package interfaces

import "github.com/dep2p/go-l2cap/pkg/types"

// MetricsRecorder 连接管理器的指标记录接口
//
// 实现必须并发安全，且不得阻塞。
type MetricsRecorder interface {
	// PSMRegistered PSM 注册流程结束
	PSMRegistered(status types.Status)

	// ConnectIssued 向传输层提交了一次连接请求或接受响应
	ConnectIssued(localInitiated bool)

	// ConnectCompleted 连接结果已通知客户端
	ConnectCompleted(status types.ConnectStatus)

	// SDPSearchStarted 发起一次 SDP 搜索
	SDPSearchStarted(retry bool)

	// SDPSearchFinished SDP 搜索终结（found 表示找到远端 PSM）
	SDPSearchFinished(found bool)

	// Disconnected 链路断开
	Disconnected(status types.DisconnectStatus, localInitiated bool)

	// LinksActive 当前注册表中的链路数
	LinksActive(n int)
}
