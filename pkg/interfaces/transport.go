// Package interfaces 定义 go-l2cap 公共接口
//
// 本文件定义下层传输接口。
package interfaces

import (
	"context"

	"github.com/dep2p/go-l2cap/pkg/types"
)

// Transport 连接管理器所依赖的下层 L2CAP/SDP 传输
//
// 所有请求都是异步的：方法返回仅表示请求已提交，结果通过
// EventHandler.Deliver 以 types.TransportEvent 的形式回送。
// 返回的 error 只表示请求无法提交。
type Transport interface {
	Signaling
	SDPServer
	SDPClient
	DataPath

	// SetEventHandler 设置事件接收者
	SetEventHandler(h EventHandler)
}

// EventHandler 传输事件接收者
type EventHandler interface {
	// Deliver 投递一个传输事件，阻塞直到事件处理完毕
	Deliver(ctx context.Context, ev types.TransportEvent) error
}

// Signaling L2CAP 信令请求
type Signaling interface {
	// RegisterPSM 注册本地 PSM，结果为 types.RegisterPSMCfm
	RegisterPSM(req types.RegisterPSMReq) error

	// Connect 发起外发连接，结果为 types.L2caConnectCfm
	Connect(req types.ConnectReq) error

	// ConnectAcceptResponse 响应远端连接指示，结果为 types.L2caConnectAcceptCfm
	ConnectAcceptResponse(rsp types.ConnectAcceptRsp) error

	// Disconnect 断开连接，结果为 LocalTerminated 的 types.L2caDisconnectInd
	Disconnect(sink types.Sink) error

	// DisconnectResponse 应答远端断开指示
	DisconnectResponse(rsp types.DisconnectRsp) error
}

// SDPServer 本地服务记录发布
type SDPServer interface {
	// RegisterServiceRecord 注册服务记录，结果为 types.RegisterRecordCfm
	//
	// 调用后记录字节归传输层所有。
	RegisterServiceRecord(req types.RegisterRecordReq) error
}

// SDPClient 远端服务发现
type SDPClient interface {
	// OpenSDPSession 创建搜索会话
	OpenSDPSession(owner types.InstanceID) (types.SDPSessionID, error)

	// SDPSearch 在会话上发起一次搜索，结果为 types.SDPSearchResult
	SDPSearch(req types.SDPSearchReq) error

	// CloseSDPSession 取消会话上的搜索并释放会话
	CloseSDPSession(session types.SDPSessionID)
}

// DataPath 数据通道句柄操作
type DataPath interface {
	// SinkForConnection 返回连接对应的写端
	SinkForConnection(id types.ConnectionID) types.Sink

	// SourceFromSink 返回写端配对的读端
	SourceFromSink(sink types.Sink) types.Source

	// SinkFromSource 返回读端配对的写端
	SinkFromSource(source types.Source) types.Sink

	// EnableNotifications 把数据通道切换为消息通知模式
	EnableNotifications(sink types.Sink, source types.Source) error

	// SetHandoverPolicy 设置读端移交策略
	SetHandoverPolicy(source types.Source, policy types.HandoverPolicy) error

	// DisposeSource 丢弃读端未读数据并释放读端
	DisposeSource(source types.Source)
}
