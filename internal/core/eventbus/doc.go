// Package eventbus 实现进程内事件总线
//
// 连接管理器通过总线发布 PSM 与链路状态变化，订阅者按事件的具体类型订阅：
//
//	sub, _ := bus.Subscribe(new(types.EvtLinkStateChanged), interfaces.BufSize(32))
//	defer sub.Close()
//	for ev := range sub.Out() {
//	    e := ev.(*types.EvtLinkStateChanged)
//	    ...
//	}
//
// 发射不阻塞，订阅者缓冲区满时事件被丢弃并计数。
// 有状态发射器保留最后一个事件，新订阅者订阅时立即收到。
//
// Close 关闭总线上的所有订阅与发射器，之后的 Subscribe/Emitter 返回 ErrClosed。
package eventbus
