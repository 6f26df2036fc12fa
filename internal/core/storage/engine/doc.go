// Package engine 定义存储引擎的内部接口
//
// InternalEngine 在 pkg/interfaces.Engine 之上增加前缀遍历与同步，
// 只供 storage 内部使用。所有实现必须并发安全。
package engine
