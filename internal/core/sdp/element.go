package sdp

import (
	"encoding/binary"

	"github.com/dep2p/go-l2cap/pkg/types"
)

// ElementType 数据元素类型描述符
type ElementType uint8

const (
	TypeNil  ElementType = 0
	TypeUint ElementType = 1
	TypeInt  ElementType = 2
	TypeUUID ElementType = 3
	TypeText ElementType = 4
	TypeBool ElementType = 5
	TypeSeq  ElementType = 6
	TypeAlt  ElementType = 7
	TypeURL  ElementType = 8
)

// String 返回类型名
func (t ElementType) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeUint:
		return "uint"
	case TypeInt:
		return "int"
	case TypeUUID:
		return "uuid"
	case TypeText:
		return "text"
	case TypeBool:
		return "bool"
	case TypeSeq:
		return "seq"
	case TypeAlt:
		return "alt"
	case TypeURL:
		return "url"
	default:
		return "invalid"
	}
}

func (t ElementType) variable() bool {
	return t == TypeText || t == TypeSeq || t == TypeAlt || t == TypeURL
}

// Element 一个 SDP 数据元素
type Element struct {
	Type ElementType

	// Value 定长类型与文本/URL 的原始值字节
	Value []byte

	// Items 序列/选择的子元素
	Items []Element

	// Offset 解码时值字节在输入缓冲区中的起始偏移
	Offset int
}

// ============================================================================
//                              构造
// ============================================================================

// Nil 空元素
func Nil() Element { return Element{Type: TypeNil} }

// Uint8 8 位无符号整数
func Uint8(v uint8) Element { return Element{Type: TypeUint, Value: []byte{v}} }

// Uint16 16 位无符号整数
func Uint16(v uint16) Element {
	return Element{Type: TypeUint, Value: binary.BigEndian.AppendUint16(nil, v)}
}

// Uint32 32 位无符号整数
func Uint32(v uint32) Element {
	return Element{Type: TypeUint, Value: binary.BigEndian.AppendUint32(nil, v)}
}

// Bool 布尔值
func Bool(v bool) Element {
	if v {
		return Element{Type: TypeBool, Value: []byte{1}}
	}
	return Element{Type: TypeBool, Value: []byte{0}}
}

// UUID16 16 位 UUID
func UUID16(v uint16) Element {
	return Element{Type: TypeUUID, Value: binary.BigEndian.AppendUint16(nil, v)}
}

// UUID32 32 位 UUID
func UUID32(v uint32) Element {
	return Element{Type: TypeUUID, Value: binary.BigEndian.AppendUint32(nil, v)}
}

// UUID128 128 位 UUID
func UUID128(u types.UUID) Element {
	return Element{Type: TypeUUID, Value: u.Bytes()}
}

// UUIDShortest 以能表达该 UUID 的最短形式编码
func UUIDShortest(u types.UUID) Element {
	switch {
	case u.Is16Bit():
		return UUID16(u.Get16Bit())
	case u.Is32Bit():
		return UUID32(u.Get32Bit())
	default:
		return UUID128(u)
	}
}

// UUIDOfSize 按指定形式编码 UUID
func UUIDOfSize(u types.UUID, size types.UUIDSize) Element {
	switch size {
	case types.UUIDSize16:
		return UUID16(u.Get16Bit())
	case types.UUIDSize32:
		return UUID32(u.Get32Bit())
	default:
		return UUID128(u)
	}
}

// Text 文本串
func Text(s string) Element { return Element{Type: TypeText, Value: []byte(s)} }

// URL 统一资源定位符
func URL(s string) Element { return Element{Type: TypeURL, Value: []byte(s)} }

// Seq 数据元素序列
func Seq(items ...Element) Element { return Element{Type: TypeSeq, Items: items} }

// Alt 数据元素选择
func Alt(items ...Element) Element { return Element{Type: TypeAlt, Items: items} }

// ============================================================================
//                              访问
// ============================================================================

// Uint 返回无符号整数值
func (e Element) Uint() (uint64, bool) {
	if e.Type != TypeUint || len(e.Value) == 0 || len(e.Value) > 8 {
		return 0, false
	}
	var v uint64
	for _, b := range e.Value {
		v = v<<8 | uint64(b)
	}
	return v, true
}

// UUID 返回展开后的 128 位 UUID
func (e Element) UUID() (types.UUID, bool) {
	if e.Type != TypeUUID {
		return types.UUID{}, false
	}
	switch len(e.Value) {
	case 2:
		return types.NewUUID16(binary.BigEndian.Uint16(e.Value)), true
	case 4:
		return types.NewUUID32(binary.BigEndian.Uint32(e.Value)), true
	case 16:
		return types.UUID(e.Value), true
	}
	return types.UUID{}, false
}

// Text 返回文本值
func (e Element) Text() (string, bool) {
	if e.Type != TypeText && e.Type != TypeURL {
		return "", false
	}
	return string(e.Value), true
}

// IsSequence 是否为序列或选择
func (e Element) IsSequence() bool {
	return e.Type == TypeSeq || e.Type == TypeAlt
}

// ============================================================================
//                              编码
// ============================================================================

// Marshal 编码数据元素
func (e Element) Marshal() []byte {
	return e.AppendTo(nil)
}

// AppendTo 把编码结果追加到 b
func (e Element) AppendTo(b []byte) []byte {
	switch {
	case e.Type == TypeNil:
		return append(b, 0)
	case e.Type == TypeSeq || e.Type == TypeAlt:
		var body []byte
		for _, it := range e.Items {
			body = it.AppendTo(body)
		}
		return appendVariable(b, e.Type, body)
	case e.Type.variable():
		return appendVariable(b, e.Type, e.Value)
	default:
		idx, ok := fixedIndex(len(e.Value))
		if !ok {
			panic("sdp: fixed-size element with unsupported length")
		}
		b = append(b, byte(e.Type)<<3|idx)
		return append(b, e.Value...)
	}
}

func appendVariable(b []byte, t ElementType, body []byte) []byte {
	hdr := byte(t) << 3
	n := len(body)
	switch {
	case n <= 0xFF:
		b = append(b, hdr|5, byte(n))
	case n <= 0xFFFF:
		b = append(b, hdr|6)
		b = binary.BigEndian.AppendUint16(b, uint16(n))
	default:
		b = append(b, hdr|7)
		b = binary.BigEndian.AppendUint32(b, uint32(n))
	}
	return append(b, body...)
}

func fixedIndex(n int) (byte, bool) {
	switch n {
	case 1:
		return 0, true
	case 2:
		return 1, true
	case 4:
		return 2, true
	case 8:
		return 3, true
	case 16:
		return 4, true
	}
	return 0, false
}

// ============================================================================
//                              解码
// ============================================================================

// Decode 解码 b 开头的一个数据元素，返回元素和消耗的字节数
//
// 返回元素的 Value 引用 b 中的字节，Offset 相对于 b 起始位置。
func Decode(b []byte) (Element, int, error) {
	return decodeAt(b, 0)
}

func decodeAt(buf []byte, off int) (Element, int, error) {
	if off >= len(buf) {
		return Element{}, off, ErrTruncated
	}
	hdr := buf[off]
	t := ElementType(hdr >> 3)
	idx := hdr & 0x07
	off++

	if t > TypeURL {
		return Element{}, off, ErrInvalidType
	}
	if t == TypeNil {
		if idx != 0 {
			return Element{}, off, ErrInvalidSize
		}
		return Element{Type: TypeNil, Offset: off}, off, nil
	}

	var n int
	switch idx {
	case 0, 1, 2, 3, 4:
		if t.variable() {
			return Element{}, off, ErrInvalidSize
		}
		n = 1 << idx
	case 5:
		if off+1 > len(buf) {
			return Element{}, off, ErrTruncated
		}
		n = int(buf[off])
		off++
	case 6:
		if off+2 > len(buf) {
			return Element{}, off, ErrTruncated
		}
		n = int(binary.BigEndian.Uint16(buf[off:]))
		off += 2
	case 7:
		if off+4 > len(buf) {
			return Element{}, off, ErrTruncated
		}
		n = int(binary.BigEndian.Uint32(buf[off:]))
		off += 4
	}
	if idx >= 5 && !t.variable() {
		return Element{}, off, ErrInvalidSize
	}
	if !validFixed(t, n) {
		return Element{}, off, ErrInvalidSize
	}
	if n < 0 || off+n > len(buf) {
		return Element{}, off, ErrTruncated
	}

	e := Element{Type: t, Offset: off}
	end := off + n
	if e.IsSequence() {
		for p := off; p < end; {
			child, next, err := decodeAt(buf[:end], p)
			if err != nil {
				return Element{}, next, err
			}
			e.Items = append(e.Items, child)
			p = next
		}
	} else {
		e.Value = buf[off:end]
	}
	return e, end, nil
}

func validFixed(t ElementType, n int) bool {
	switch t {
	case TypeBool:
		return n == 1
	case TypeUUID:
		return n == 2 || n == 4 || n == 16
	default:
		return true
	}
}
