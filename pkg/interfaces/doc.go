// Package interfaces 定义 didpeer 的公共接口
//
// # 外部协作者
//
// 以下能力由宿主应用提供，didpeer 只通过接口使用：
//   - host.go        - 直连流（按节点 ID + 协议名拨号）
//   - pubsub.go      - gossip 主题发布/订阅
//   - content.go     - 内容寻址存储（按 CID 读写字节）
//   - did.go         - DID 文档解析、本地 DID
//   - qr.go          - 二维码符号解码
//   - keystore.go    - 本地 RSA 私钥
//   - profile.go     - 本地身份资料
//
// # 内部服务
//
//   - eventbus.go    - 类型化事件总线
//   - services.go    - 注册表、认证、存活检测之间的服务接口
package interfaces
