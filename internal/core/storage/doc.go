// Package storage 提供 didpeer 的持久化存储
//
// 所有组件共享一个 BadgerDB 实例，通过 key 前缀隔离数据：
//
//	t/ - 信任缓存（DID -> 认证记录）
//
// 目录结构：
//
//	engine/         - 引擎接口与错误
//	engine/badger/  - BadgerDB 实现
//	kv/             - 带前缀的 KV 视图
package storage
