// Package types 定义 didpeer 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何 didpeer 内部包。
// 类型在各模块之间以值的形式传递。
//
// # 文件组织
//
//   - ids.go            - PeerID
//   - handle.go         - SpaceHandle（username[#n]@planet[@suffix]）
//   - did.go            - DID 语法检查
//   - content.go        - 内容标识（CID）、IPFS/IPNS 路径
//   - identity.go       - IdentityMessage 内部强类型表示
//   - identity_wire.go  - IdentityMessage 线上格式（版本化变体 + 模式校验）
//   - ping.go           - PingHistory 环形记录
//   - events.go         - 注册表事件
//   - errors.go         - 公共错误定义
package types
