// Package mocks 提供统一的测试 Mock 实现
//
// # 核心 Mock
//
//   - MockTransport: 模拟 interfaces.Transport，记录所有请求并分配句柄
//   - MockClient: 记录所有客户端回调，生成 interfaces.Functions
//
// # 其他 Mock
//
//   - MockMetrics: 模拟 interfaces.MetricsRecorder，按名称计数
//   - MockPSMCache: 模拟 interfaces.PSMCache
//
// # 设计原则
//
// 1. 函数式注入: 每个 Mock 都支持通过 XxxFunc 字段注入自定义行为
// 2. 调用记录: 关键 Mock 记录调用历史，便于验证测试行为
//
// # 使用示例
//
//	tr := mocks.NewMockTransport()
//	mgr, _ := l2capmgr.New(l2capmgr.DefaultConfig(), tr)
//	client := mocks.NewMockClient()
//	id, _ := mgr.Register(types.PSMDynamic, client.Functions())
//	tr.Emit(types.RegisterPSMCfm{Instance: id, LocalPSM: 0x1001, Result: types.ResultSuccess})
//
// 自定义行为:
//
//	tr.ConnectFunc = func(req types.ConnectReq) error {
//	    return errors.New("no resources")
//	}
package mocks
