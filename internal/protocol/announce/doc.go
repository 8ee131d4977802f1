// Package announce 构建并周期性发布本节点的签名身份公告
//
// 每次公告携带：
//   - 身份声明（handle、虚拟星球、QR 证明、DID 及其文档 CID、组织 DID）
//   - 签名块（默认 RSA 公钥 CID、对本节点 DID 字符串的 PSS 签名 CID）
//   - 本次运行的会话令牌（Session），直连请求必须回带该令牌
//
// 公告主题的传输服务也由本包持有：周期循环负责发布，入站消息交给注册表处理。
// 任一步骤失败只跳过本轮，下一个周期重试。
package announce
