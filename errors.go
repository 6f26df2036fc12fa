package l2cap

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("l2cap: node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("l2cap: node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("l2cap: node closed")
)
