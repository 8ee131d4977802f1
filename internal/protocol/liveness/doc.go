// Package liveness 实现节点存活检测
//
// Watcher 按固定周期扫描注册表中的全部记录，对已公告且超过探测间隔的节点
// 发起探测：当前版本节点使用 DID ping（携带对端公告的会话令牌），
// 旧版本节点使用往返探测。成功的结果写回记录的探测历史；探测失败不视为
// 错误，记录保持原状等待下一轮。
package liveness
