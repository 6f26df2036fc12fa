package l2capmgr

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrAllocInstance 实例数达到上限
	ErrAllocInstance = errors.New("l2capmgr: instance allocation failed")

	// ErrNotReady PSM 尚未完成注册
	ErrNotReady = errors.New("l2capmgr: psm not registered")

	// ErrSDPBusy SDP 会话正在搜索且未启用排队
	ErrSDPBusy = errors.New("l2capmgr: sdp search in progress")

	// ErrLinkBusy 到该对端的链路正在断开
	ErrLinkBusy = errors.New("l2capmgr: link is disconnecting")

	// ErrManagerClosed 管理器已关闭
	ErrManagerClosed = errors.New("l2capmgr: manager closed")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("l2capmgr: invalid config")

	// ErrTransport 传输层拒绝提交请求
	ErrTransport = errors.New("l2capmgr: transport request failed")

	// ErrFatal 违反约定的致命错误
	ErrFatal = errors.New("l2capmgr: fatal")
)

// FatalError 致命错误，以 panic 值的形式抛出
type FatalError struct {
	Op  string
	Msg string
}

// Error 实现 error 接口
func (e *FatalError) Error() string {
	return fmt.Sprintf("l2capmgr: fatal in %s: %s", e.Op, e.Msg)
}

// Unwrap 返回 ErrFatal
func (e *FatalError) Unwrap() error {
	return ErrFatal
}

// fatalf 记录错误并 panic
func fatalf(op, format string, args ...any) {
	err := &FatalError{Op: op, Msg: fmt.Sprintf(format, args...)}
	logger.Error("致命错误", "op", op, "error", err.Msg)
	panic(err)
}
