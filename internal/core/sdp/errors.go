package sdp

import "errors"

// SDP 编解码错误定义
var (
	// ErrTruncated 数据不完整
	ErrTruncated = errors.New("sdp: truncated data element")

	// ErrInvalidSize 长度索引与类型不匹配
	ErrInvalidSize = errors.New("sdp: invalid size descriptor")

	// ErrInvalidType 未知的类型描述符
	ErrInvalidType = errors.New("sdp: invalid type descriptor")

	// ErrNotSequence 期望数据元素序列
	ErrNotSequence = errors.New("sdp: element is not a sequence")

	// ErrMalformedRecord 属性 ID/值不成对
	ErrMalformedRecord = errors.New("sdp: malformed attribute list")

	// ErrOffsetOutOfRange PSM 偏移超出记录范围
	ErrOffsetOutOfRange = errors.New("sdp: psm offset out of range")
)
