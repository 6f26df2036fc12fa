// Package sim 提供进程内的模拟 L2CAP/SDP 传输
//
// Controller 实现 interfaces.Transport，行为接近真实控制器：
//   - 所有请求异步确认，事件按提交顺序经延迟后投递
//   - 请求按令牌桶限速，模拟控制器的命令额度
//   - 远端设备由 AddPeer 描述，可发布服务记录、拒绝连接或让 SDP 搜索失败
//   - 远端连接、断开与数据到达由 Inject* 方法注入
//
// 事件投递在独立 goroutine 中进行，Deliver 返回前不会投递下一个事件。
//
//	c := sim.New(sim.DefaultConfig())
//	mgr, _ := l2capmgr.New(l2capmgr.DefaultConfig(), c)
//	c.Start()
//	defer c.Close()
package sim
