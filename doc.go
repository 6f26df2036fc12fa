// Package l2cap 提供 L2CAP 连接管理器的装配入口
//
// Node 把连接管理器、模拟传输、事件总线、指标与发现缓存组装在
// 一个 Fx 应用中，按配置加载各组件。
//
// # 快速开始
//
//	node, err := l2cap.Start(ctx, l2cap.WithPreset("test"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	id, err := node.Manager().Register(types.PSMDynamic, fns)
//	err = node.Manager().Connect(peer, id, nil)
//
// 连接结果通过注册时提供的回调异步通知，回调在管理器的事件循环中
// 执行，不能同步回调管理器。
//
// # 组件加载顺序
//
//  1. 事件总线
//  2. 指标
//  3. 发现缓存（Manager.EnableSDPCache 开启时创建）
//  4. 模拟传输
//  5. 连接管理器
//
// 停止时按相反顺序关闭。
package l2cap
