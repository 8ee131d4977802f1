// Package registry 实现节点注册表
//
// 注册表把准入的身份公告转化为持久的、经过认证的节点记录：
//
//  1. 传输层发送方必须与公告中的 peer_id 一致
//  2. DID 已在信任缓存中（且 peer_id 一致）时只做刷新
//  3. 同一 DID 同时只允许一次注册（单飞）
//  4. v4 公告校验对 DID 的 PSS 签名
//  5. 校验 QR 证明，失败时记录可见但不可认证
//  6. 带重试解析 DID 文档
//  7. 创建或更新记录
//  8. 退避窗口外异步发起 DID 挑战
//  9. 释放单飞锁
//
// 认证成功后写入信任缓存、请求保持连接并发出事件。记录从不删除，
// 陈旧程度通过 IdentLast 与探测历史体现。
package registry
