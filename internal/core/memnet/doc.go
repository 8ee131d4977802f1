// Package memnet 提供进程内网络结构
//
// 实现 pkg/interfaces 中全部外部协作者：直连流（net.Pipe）、gossip 主题、
// 内容寻址存储、DID 注册表、二维码解码、密钥与身份资料。
// 用于多节点测试和命令行演示，不涉及任何真实网络。
//
//	net := memnet.NewNetwork()
//	alice, _ := net.NewPeer(ctx, "alice", "Earth")
//	bob, _ := net.NewPeer(ctx, "bob", "Earth")
package memnet
