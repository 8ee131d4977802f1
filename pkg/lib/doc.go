// Package lib 包含基础设施工具库
//
// 本目录包含与架构组件无关的通用工具库：
//
//   - crypto: RSA 密钥与 PSS 签名
//   - log: 日志封装
//
// # 与 pkg/ 其他目录的关系
//
//   - interfaces/: 协作者与服务接口
//   - types/: 公共类型定义
//   - protocolids/: 主题与协议 ID 常量
//   - lib/: 基础设施工具库（本目录）
package lib
