// Package l2capmgr 实现 L2CAP 连接管理器
//
// 连接管理器位于客户端与下层 L2CAP/SDP 传输之间，负责：
//
//   - 注册本地 PSM 并发布可选的 SDP 服务记录
//   - 外发连接，远端 PSM 未知时先通过 SDP 搜索发现
//   - 响应远端连接指示
//   - 断开链路并把断开原因映射为客户端状态
//   - 把数据通道的 MoreData/MoreSpace 通知分发给客户端
//
// # 执行模型
//
// 所有状态都只在一个事件循环 goroutine 中访问。公共方法与
// Deliver 把操作投递到循环中并等待执行完毕；延迟任务在当前
// 操作结束后、下一个操作开始前依次执行。
//
// 客户端回调在循环 goroutine 中同步执行，回调内不得同步调用
// 管理器的方法，需要时应转交给其他 goroutine。
//
// # 致命错误
//
// 传输层或客户端违反约定（未知实例、未知链路、计数下溢等）
// 时以 *FatalError panic，panic 在调用者的 goroutine 上重新抛出。
//
// # 使用示例
//
//	mgr, err := l2capmgr.New(l2capmgr.DefaultConfig(), tr)
//	if err != nil {
//	    return err
//	}
//	defer mgr.Close()
//
//	id, err := mgr.Register(types.PSMDynamic, fns)
//	...
//	err = mgr.Connect(peer, id, nil)
package l2capmgr
