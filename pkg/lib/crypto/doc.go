// Package crypto 提供 didpeer 使用的 RSA-PSS 密码学工具
//
// 身份证明与挑战应答统一使用 RSA-PSS/SHA-256，盐长度等于哈希长度。
//
// # 快速开始
//
// 生成密钥对：
//
//	priv, err := crypto.GenerateRSAKey(crypto.RSADefaultKeySize, rand.Reader)
//
// 签名和验证：
//
//	sig, err := priv.Sign([]byte(did))
//	ok := priv.Public().Verify([]byte(did), sig)
//
// 公钥以 PEM（PKIX）格式在内容存储中发布：
//
//	pemBytes, err := priv.Public().MarshalPEM()
//	pub, err := crypto.UnmarshalRSAPublicKeyPEM(pemBytes)
//
// # 架构层
//
//   - 层级：pkg（公共包）
//   - 依赖：无
package crypto
