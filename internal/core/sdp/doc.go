// Package sdp 实现 SDP 数据元素编解码与服务记录工具
//
// 数据元素的头字节高 5 位为类型描述符，低 3 位为长度索引；
// 长度索引 5/6/7 表示后面跟 1/2/4 字节的长度字段。所有多字节
// 数值均为大端。
//
// 本包提供：
//   - Element 数据元素的构造、编码和解码（保留值在原始缓冲区中的偏移）
//   - 服务记录的属性解析与构建
//   - 在服务记录中写入分配到的 PSM（PatchPSM）
//   - 从 ProtocolDescriptorList 中提取 L2CAP PSM（ExtractL2capPSM）
//
// # 使用示例
//
//	rec := sdp.L2capServiceRecord(serviceUUID, "peer data sync")
//	buf, err := sdp.PatchPSM(rec.Record, rec.OffsetToPSM, 0x1001)
package sdp
