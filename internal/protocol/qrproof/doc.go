// Package qrproof 校验带外二维码身份证明
//
// 证明图片包含 2-3 个符号，每个符号可以独立证明一项身份声明：
//
//	/ipns/<peerId>        节点 ID
//	/ipfs/<handle 哈希>   handle
//	did:...               DID
//
// 至少两项匹配才视为有效。同一类证明重复出现只计一次。
// 校验器从不返回错误，任何失败都得到无效结果。
package qrproof
