package sim

import "errors"

var (
	// ErrClosed 控制器已关闭
	ErrClosed = errors.New("sim: controller closed")

	// ErrBusy 命令额度用尽
	ErrBusy = errors.New("sim: command credits exhausted")

	// ErrUnknownSession 会话不存在
	ErrUnknownSession = errors.New("sim: unknown sdp session")

	// ErrUnknownSink 写端不存在
	ErrUnknownSink = errors.New("sim: unknown sink")

	// ErrUnknownConnection 连接不存在
	ErrUnknownConnection = errors.New("sim: unknown connection")

	// ErrNoConnections 连接标识已全部占用
	ErrNoConnections = errors.New("sim: connection ids exhausted")

	// ErrUnknownPeer 远端设备不存在
	ErrUnknownPeer = errors.New("sim: unknown peer")

	// ErrPSMNotRegistered 本地 PSM 未注册
	ErrPSMNotRegistered = errors.New("sim: local psm not registered")

	// ErrNotNotifying 数据通道未切换为通知模式
	ErrNotNotifying = errors.New("sim: notifications not enabled")
)
