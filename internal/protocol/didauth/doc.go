// Package didauth 实现直连 DID 挑战应答协议
//
// 协议 /didpeer/didauth-vc-pss/1.0.0 在同一条直连流上承载两个路径：
//
//	POST /auth     {did, nonce, challenge, ident_token} → 可验证凭证形式的签名应答
//	POST /didping  {did, ident_token}                   → {didpong: {version, <did>: 状态}}
//
// 另有 /didpeer/ping/1.0.0 供旧版本节点做往返探测。
//
// 每一帧是 varint 长度前缀加 JSON 文档。一条流只承载一次请求和一次响应。
//
// 应答方只为自己当前控制的 DID 签名，且请求必须携带本次公告会话的令牌。
package didauth
