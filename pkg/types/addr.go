package types

import (
	"encoding/hex"
	"strings"
)

// ============================================================================
//                              BDAddr - 蓝牙设备地址
// ============================================================================

// BDAddr 48 位蓝牙设备地址
//
// 内部按显示顺序存储（最高字节在前），即 "00:11:22:33:44:55" 中
// b[0] == 0x00。
type BDAddr [6]byte

// ParseBDAddr 解析 "XX:XX:XX:XX:XX:XX" 格式的地址
//
// 同时接受 '-' 作为分隔符，大小写不敏感。
func ParseBDAddr(s string) (BDAddr, error) {
	var a BDAddr
	if len(s) != 17 {
		return a, ErrInvalidBDAddr
	}
	for i := 0; i < 6; i++ {
		if i > 0 {
			sep := s[i*3-1]
			if sep != ':' && sep != '-' {
				return a, ErrInvalidBDAddr
			}
		}
		b, err := hex.DecodeString(s[i*3 : i*3+2])
		if err != nil {
			return a, ErrInvalidBDAddr
		}
		a[i] = b[0]
	}
	return a, nil
}

// MustParseBDAddr 解析地址，失败时 panic
//
// 仅用于常量初始化和测试。
func MustParseBDAddr(s string) BDAddr {
	a, err := ParseBDAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String 返回 "XX:XX:XX:XX:XX:XX" 格式
func (a BDAddr) String() string {
	var sb strings.Builder
	sb.Grow(17)
	for i, b := range a {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{b})))
	}
	return sb.String()
}

// IsZero 是否为全零地址
func (a BDAddr) IsZero() bool {
	return a == BDAddr{}
}

// NAP 非重要地址部分（高 16 位）
func (a BDAddr) NAP() uint16 {
	return uint16(a[0])<<8 | uint16(a[1])
}

// UAP 高位地址部分（8 位）
func (a BDAddr) UAP() uint8 {
	return a[2]
}

// LAP 低位地址部分（低 24 位）
func (a BDAddr) LAP() uint32 {
	return uint32(a[3])<<16 | uint32(a[4])<<8 | uint32(a[5])
}

// ============================================================================
//                              AddrType - 地址类型
// ============================================================================

// AddrType 地址类型
type AddrType uint8

const (
	// AddrTypePublic 公共地址
	AddrTypePublic AddrType = iota
	// AddrTypeRandom 随机地址
	AddrTypeRandom
)

// String 返回地址类型的字符串表示
func (t AddrType) String() string {
	switch t {
	case AddrTypePublic:
		return "public"
	case AddrTypeRandom:
		return "random"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              TransportKind - 物理传输
// ============================================================================

// TransportKind 物理传输类型
type TransportKind uint8

const (
	// TransportBREDR 经典蓝牙
	TransportBREDR TransportKind = iota
	// TransportLE 低功耗蓝牙
	TransportLE
)

// String 返回传输类型的字符串表示
func (k TransportKind) String() string {
	switch k {
	case TransportBREDR:
		return "bredr"
	case TransportLE:
		return "le"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              TypedAddr - 带类型的设备地址
// ============================================================================

// TypedAddr 对端设备标识：地址 + 地址类型 + 传输类型
//
// 可直接用作 map 键和 == 比较。
type TypedAddr struct {
	Addr      BDAddr
	Type      AddrType
	Transport TransportKind
}

// NewBREDRAddr 创建经典蓝牙公共地址
func NewBREDRAddr(a BDAddr) TypedAddr {
	return TypedAddr{Addr: a, Type: AddrTypePublic, Transport: TransportBREDR}
}

// String 返回 "addr/type/transport" 形式
func (t TypedAddr) String() string {
	return t.Addr.String() + "/" + t.Type.String() + "/" + t.Transport.String()
}
