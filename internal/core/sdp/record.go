package sdp

import (
	"encoding/binary"

	"github.com/dep2p/go-l2cap/pkg/types"
)

// 通用属性 ID
const (
	AttrServiceRecordHandle               uint16 = 0x0000
	AttrServiceClassIDList                uint16 = 0x0001
	AttrProtocolDescriptorList            uint16 = 0x0004
	AttrBrowseGroupList                   uint16 = 0x0005
	AttrBluetoothProfileDescriptorList    uint16 = 0x0009
	AttrAdditionalProtocolDescriptorLists uint16 = 0x000D
	AttrServiceName                       uint16 = 0x0100
)

// Attribute 服务记录中的一个属性
type Attribute struct {
	ID    uint16
	Value Element
}

// ParseAttributes 解析属性 ID/值对序列
func ParseAttributes(b []byte) ([]Attribute, error) {
	e, _, err := Decode(b)
	if err != nil {
		return nil, err
	}
	if e.Type != TypeSeq {
		return nil, ErrNotSequence
	}
	if len(e.Items)%2 != 0 {
		return nil, ErrMalformedRecord
	}

	attrs := make([]Attribute, 0, len(e.Items)/2)
	for i := 0; i < len(e.Items); i += 2 {
		id, ok := e.Items[i].Uint()
		if !ok || len(e.Items[i].Value) != 2 {
			return nil, ErrMalformedRecord
		}
		attrs = append(attrs, Attribute{ID: uint16(id), Value: e.Items[i+1]})
	}
	return attrs, nil
}

// FindAttribute 查找属性
func FindAttribute(attrs []Attribute, id uint16) (Element, bool) {
	for _, a := range attrs {
		if a.ID == id {
			return a.Value, true
		}
	}
	return Element{}, false
}

// ============================================================================
//                              记录构建
// ============================================================================

// RecordBuilder 服务记录构建器，属性按添加顺序编码
type RecordBuilder struct {
	attrs []Attribute
}

// NewRecord 创建空记录
func NewRecord() *RecordBuilder {
	return &RecordBuilder{}
}

// Add 添加属性
func (r *RecordBuilder) Add(id uint16, v Element) *RecordBuilder {
	r.attrs = append(r.attrs, Attribute{ID: id, Value: v})
	return r
}

// Element 返回属性序列元素
func (r *RecordBuilder) Element() Element {
	items := make([]Element, 0, 2*len(r.attrs))
	for _, a := range r.attrs {
		items = append(items, Uint16(a.ID), a.Value)
	}
	return Seq(items...)
}

// Bytes 编码记录
func (r *RecordBuilder) Bytes() []byte {
	return r.Element().Marshal()
}

// L2capServiceRecord 构建一条以 L2CAP 为协议栈的服务记录
//
// PSM 字段先写为 PSMInvalid，OffsetToPSM 指向该字段，
// 注册确认后由连接管理器写入分配到的 PSM。
func L2capServiceRecord(service types.UUID, name string) types.SDPRecord {
	b := NewRecord().
		Add(AttrServiceClassIDList, Seq(UUIDShortest(service))).
		Add(AttrProtocolDescriptorList, Seq(
			Seq(UUID16(types.UUIDL2CAP.Get16Bit()), Uint16(uint16(types.PSMInvalid))),
		)).
		Add(AttrBrowseGroupList, Seq(UUID16(types.UUIDPublicBrowseRoot.Get16Bit())))
	if name != "" {
		b.Add(AttrServiceName, Text(name))
	}

	buf := b.Bytes()
	off, ok := locatePSM(buf)
	if !ok {
		// 记录由本函数构建，定位失败只可能是编码缺陷
		panic("sdp: psm field not found in generated record")
	}
	return types.SDPRecord{Record: buf, OffsetToPSM: off}
}

// locatePSM 返回协议描述列表中 L2CAP PSM 值的字节偏移
func locatePSM(record []byte) (int, bool) {
	attrs, err := ParseAttributes(record)
	if err != nil {
		return 0, false
	}
	pdl, ok := FindAttribute(attrs, AttrProtocolDescriptorList)
	if !ok {
		return 0, false
	}
	psm, ok := l2capPSMElement(pdl)
	if !ok {
		return 0, false
	}
	return psm.Offset, true
}

// PatchPSM 返回写入了 PSM 的记录副本
func PatchPSM(record []byte, offset int, psm types.PSM) ([]byte, error) {
	if offset < 0 || offset+2 > len(record) {
		return nil, ErrOffsetOutOfRange
	}
	out := make([]byte, len(record))
	copy(out, record)
	binary.BigEndian.PutUint16(out[offset:], uint16(psm))
	return out, nil
}

// ============================================================================
//                              PSM 提取
// ============================================================================

// ExtractL2capPSM 从属性列表中提取 L2CAP PSM
//
// attrs 为搜索返回的属性 ID/值对序列。未找到 ProtocolDescriptorList、
// 其中没有 L2CAP 协议或 PSM 不合法时返回 false。
func ExtractL2capPSM(attrs []byte) (types.PSM, bool) {
	list, err := ParseAttributes(attrs)
	if err != nil {
		return types.PSMInvalid, false
	}
	pdl, ok := FindAttribute(list, AttrProtocolDescriptorList)
	if !ok {
		return types.PSMInvalid, false
	}
	e, ok := l2capPSMElement(pdl)
	if !ok {
		return types.PSMInvalid, false
	}
	v, _ := e.Uint()
	psm := types.PSM(v)
	if !psm.IsValid() {
		return types.PSMInvalid, false
	}
	return psm, true
}

// l2capPSMElement 在协议描述列表中查找 L2CAP 协议的参数元素
//
// 列表可能是序列或选择（多协议栈）；选择时取第一个包含 L2CAP 的协议栈。
func l2capPSMElement(pdl Element) (Element, bool) {
	if pdl.Type == TypeAlt {
		for _, stack := range pdl.Items {
			if e, ok := l2capPSMElement(stack); ok {
				return e, true
			}
		}
		return Element{}, false
	}
	if pdl.Type != TypeSeq {
		return Element{}, false
	}
	for _, proto := range pdl.Items {
		if proto.Type != TypeSeq || len(proto.Items) < 2 {
			continue
		}
		u, ok := proto.Items[0].UUID()
		if !ok || u != types.UUIDL2CAP {
			continue
		}
		param := proto.Items[1]
		if param.Type != TypeUint || len(param.Value) != 2 {
			return Element{}, false
		}
		return param, true
	}
	return Element{}, false
}

// ServiceClasses 返回记录中的服务类 UUID
func ServiceClasses(attrs []Attribute) []types.UUID {
	e, ok := FindAttribute(attrs, AttrServiceClassIDList)
	if !ok || !e.IsSequence() {
		return nil
	}
	out := make([]types.UUID, 0, len(e.Items))
	for _, it := range e.Items {
		if u, ok := it.UUID(); ok {
			out = append(out, u)
		}
	}
	return out
}

// AttributeIDList 构建搜索用的属性 ID 列表
func AttributeIDList(ids ...uint16) []byte {
	items := make([]Element, 0, len(ids))
	for _, id := range ids {
		items = append(items, Uint16(id))
	}
	return Seq(items...).Marshal()
}

// AttributeRange 构建覆盖 [lo, hi] 的属性范围列表
func AttributeRange(lo, hi uint16) []byte {
	return Seq(Uint32(uint32(lo)<<16 | uint32(hi))).Marshal()
}

// FilterAttributes 按属性 ID 列表筛选属性并重新编码
//
// idList 为 AttributeIDList/AttributeRange 生成的序列，为空时返回全部属性。
func FilterAttributes(attrs []Attribute, idList []byte) ([]byte, error) {
	var want func(id uint16) bool
	if len(idList) == 0 {
		want = func(uint16) bool { return true }
	} else {
		e, _, err := Decode(idList)
		if err != nil {
			return nil, err
		}
		if e.Type != TypeSeq {
			return nil, ErrNotSequence
		}
		want = func(id uint16) bool {
			for _, it := range e.Items {
				v, ok := it.Uint()
				if !ok {
					continue
				}
				switch len(it.Value) {
				case 2:
					if uint16(v) == id {
						return true
					}
				case 4:
					if lo, hi := uint16(v>>16), uint16(v); id >= lo && id <= hi {
						return true
					}
				}
			}
			return false
		}
	}

	b := NewRecord()
	for _, a := range attrs {
		if want(a.ID) {
			b.Add(a.ID, a.Value)
		}
	}
	return b.Bytes(), nil
}
