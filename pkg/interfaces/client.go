// Package interfaces 定义 go-l2cap 公共接口
//
// 本文件定义客户端能力集。
package interfaces

import "github.com/dep2p/go-l2cap/pkg/types"

// Functions 客户端在注册 PSM 时提供的回调表
//
// 每个回调都是可选的，但 ProcessMoreData 与 ProcessMoreSpace
// 必须同时设置或同时为空，否则 Register 会 panic。
//
// 所有回调都在连接管理器的事件循环中同步执行，
// 回调内不得同步调用连接管理器的方法。
type Functions struct {
	// LinkConfig 提供外发连接的协议配置
	LinkConfig func(peer types.TypedAddr) (types.LinkConfig, error)

	// SDPRecord 提供要发布的服务记录，ok 为 false 表示不发布
	SDPRecord func(localPSM types.PSM) (rec types.SDPRecord, ok bool)

	// SDPSearchPattern 提供查找远端 PSM 的搜索模式
	SDPSearchPattern func(peer *types.TypedAddr) (types.SearchPattern, error)

	// Registered 注册流程结束
	Registered func(status types.Status)

	// RespondConnectInd 决定是否接受远端连接，并返回附加到链路上的上下文
	RespondConnectInd func(ind *types.ConnectInd) (rsp types.ConnectRsp, ctx any)

	// HandleConnectCfm 连接结果
	HandleConnectCfm func(cfm *types.ConnectCfm, ctx any)

	// HandleDisconnectCfm 本端发起断开的结果
	HandleDisconnectCfm func(cfm *types.DisconnectCfm, ctx any)

	// RespondDisconnectInd 远端发起断开
	RespondDisconnectInd func(ind *types.DisconnectInd, ctx any)

	// ProcessMoreData 读端有新数据
	ProcessMoreData func(info *types.MoreDataInfo, ctx any)

	// ProcessMoreSpace 写端有可用空间
	ProcessMoreSpace func(info *types.MoreSpaceInfo, ctx any)
}

// FlowPaired 数据通道回调是否成对（同时设置或同时为空）
func (f Functions) FlowPaired() bool {
	return (f.ProcessMoreData == nil) == (f.ProcessMoreSpace == nil)
}

// HasFlowHandlers 是否设置了数据通道回调
func (f Functions) HasFlowHandlers() bool {
	return f.ProcessMoreData != nil && f.ProcessMoreSpace != nil
}

// Client 以接口形式实现的客户端
//
// 需要数据通道通知的客户端再实现 FlowHandler。
type Client interface {
	LinkConfig(peer types.TypedAddr) (types.LinkConfig, error)
	SDPRecord(localPSM types.PSM) (types.SDPRecord, bool)
	SDPSearchPattern(peer *types.TypedAddr) (types.SearchPattern, error)
	Registered(status types.Status)
	RespondConnectInd(ind *types.ConnectInd) (types.ConnectRsp, any)
	HandleConnectCfm(cfm *types.ConnectCfm, ctx any)
	HandleDisconnectCfm(cfm *types.DisconnectCfm, ctx any)
	RespondDisconnectInd(ind *types.DisconnectInd, ctx any)
}

// FlowHandler 数据通道通知
//
// 两个方法总是一起出现，不存在只注册其中一个的情况。
type FlowHandler interface {
	ProcessMoreData(info *types.MoreDataInfo, ctx any)
	ProcessMoreSpace(info *types.MoreSpaceInfo, ctx any)
}

// FunctionsFor 把接口形式的客户端转换为回调表
func FunctionsFor(c Client) Functions {
	f := Functions{
		LinkConfig:           c.LinkConfig,
		SDPRecord:            c.SDPRecord,
		SDPSearchPattern:     c.SDPSearchPattern,
		Registered:           c.Registered,
		RespondConnectInd:    c.RespondConnectInd,
		HandleConnectCfm:     c.HandleConnectCfm,
		HandleDisconnectCfm:  c.HandleDisconnectCfm,
		RespondDisconnectInd: c.RespondDisconnectInd,
	}
	if fh, ok := c.(FlowHandler); ok {
		f.ProcessMoreData = fh.ProcessMoreData
		f.ProcessMoreSpace = fh.ProcessMoreSpace
	}
	return f
}
