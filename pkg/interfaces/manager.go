// Package interfaces 定义 go-l2cap 公共接口
//
// 本文件定义连接管理器接口。
package interfaces

import (
	"context"

	"github.com/dep2p/go-l2cap/pkg/types"
)

// L2capManager L2CAP 连接管理器
//
// Register/Connect/Disconnect 在请求提交给传输层后立即返回，
// 结果通过注册时提供的回调异步通知。
type L2capManager interface {
	EventHandler

	// Register 注册本地 PSM
	Register(psm types.PSM, fns Functions) (types.InstanceID, error)

	// RegisterClient 以接口形式的客户端注册本地 PSM
	RegisterClient(psm types.PSM, c Client) (types.InstanceID, error)

	// Connect 连接对端
	Connect(peer types.TypedAddr, instance types.InstanceID, ctx any) error

	// Disconnect 断开写端对应的链路
	Disconnect(sink types.Sink, instance types.InstanceID) error

	// IsConnected 对端是否已连接或正在连接
	IsConnected(peer types.TypedAddr, instance types.InstanceID) bool

	// Snapshot 返回所有 PSM 实例的诊断快照
	Snapshot(ctx context.Context) ([]types.PSMInfo, error)

	// Close 关闭管理器并释放全部实例
	Close() error
}
