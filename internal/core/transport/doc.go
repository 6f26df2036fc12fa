// Package transport 装配连接管理器使用的下层传输
//
// 目前只提供进程内模拟传输（sim 子包），Module 把它作为
// interfaces.Transport 提供给连接管理器。
package transport
