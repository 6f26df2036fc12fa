package types

import "errors"

// ============================================================================
//                              解析相关错误
// ============================================================================

var (
	// ErrInvalidBDAddr 无效的蓝牙地址
	ErrInvalidBDAddr = errors.New("invalid bluetooth device address")

	// ErrInvalidUUID 无效的 UUID
	ErrInvalidUUID = errors.New("invalid uuid")

	// ErrInvalidPSM 无效的 PSM
	ErrInvalidPSM = errors.New("invalid psm")
)
