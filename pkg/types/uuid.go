package types

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// ============================================================================
//                              UUID - 蓝牙 UUID
// ============================================================================

// UUID 128 位蓝牙 UUID，按网络字节序（大端）存储
//
// 16 位和 32 位短 UUID 展开在蓝牙基础 UUID
// 00000000-0000-1000-8000-00805F9B34FB 之上。
type UUID [16]byte

// baseUUID 蓝牙基础 UUID 的低 96 位
var baseUUID = [12]byte{0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}

// 常用协议 UUID
var (
	// UUIDSDP SDP 协议
	UUIDSDP = NewUUID16(0x0001)
	// UUIDL2CAP L2CAP 协议
	UUIDL2CAP = NewUUID16(0x0100)
	// UUIDPublicBrowseRoot 公共浏览组
	UUIDPublicBrowseRoot = NewUUID16(0x1002)
)

// NewUUID16 由 16 位短 UUID 创建
func NewUUID16(short uint16) UUID {
	return NewUUID32(uint32(short))
}

// NewUUID32 由 32 位短 UUID 创建
func NewUUID32(short uint32) UUID {
	var u UUID
	binary.BigEndian.PutUint32(u[0:4], short)
	copy(u[4:], baseUUID[:])
	return u
}

// ParseUUID 解析 UUID 字符串
//
// 接受标准 36 字符形式，以及 4 位或 8 位十六进制短形式。
func ParseUUID(s string) (UUID, error) {
	switch len(s) {
	case 4, 8:
		var v uint32
		for i := 0; i < len(s); i++ {
			d, ok := hexNibble(s[i])
			if !ok {
				return UUID{}, ErrInvalidUUID
			}
			v = v<<4 | uint32(d)
		}
		return NewUUID32(v), nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, ErrInvalidUUID
	}
	return UUID(u), nil
}

// MustParseUUID 解析 UUID，失败时 panic
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Is32Bit 是否可以用 32 位短形式表示
func (u UUID) Is32Bit() bool {
	return [12]byte(u[4:]) == baseUUID
}

// Is16Bit 是否可以用 16 位短形式表示
func (u UUID) Is16Bit() bool {
	return u.Is32Bit() && u[0] == 0 && u[1] == 0
}

// Get32Bit 返回 32 位短值（仅在 Is32Bit 时有意义）
func (u UUID) Get32Bit() uint32 {
	return binary.BigEndian.Uint32(u[0:4])
}

// Get16Bit 返回 16 位短值（仅在 Is16Bit 时有意义）
func (u UUID) Get16Bit() uint16 {
	return uint16(u.Get32Bit())
}

// Bytes 返回 16 字节大端表示
func (u UUID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, u[:])
	return b
}

// String 返回标准 36 字符形式
func (u UUID) String() string {
	return uuid.UUID(u).String()
}

// ============================================================================
//                              UUIDSize - 搜索 UUID 形式
// ============================================================================

// UUIDSize SDP 搜索使用的 UUID 形式
type UUIDSize uint8

const (
	// UUIDSizeUnknown 未指定
	UUIDSizeUnknown UUIDSize = 0
	// UUIDSize16 16 位
	UUIDSize16 UUIDSize = 2
	// UUIDSize32 32 位
	UUIDSize32 UUIDSize = 4
	// UUIDSize128 128 位
	UUIDSize128 UUIDSize = 16
)

// String 返回 UUID 形式的字符串表示
func (s UUIDSize) String() string {
	switch s {
	case UUIDSize16:
		return "uuid16"
	case UUIDSize32:
		return "uuid32"
	case UUIDSize128:
		return "uuid128"
	default:
		return "unknown"
	}
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
