// Package introspect 提供本地诊断 HTTP 服务
//
// 服务运行在本地端口，以 JSON 输出节点表、信任缓存和运行时信息，
// 同时挂载 pprof 与 Prometheus 指标。默认绑定到 127.0.0.1，不暴露到网络。
//
// # 端点
//
//	GET /debug/introspect          - 完整诊断报告
//	GET /debug/introspect/peers    - 节点记录（可用 ?authenticated=1 过滤）
//	GET /debug/introspect/trust    - 信任缓存条目
//	GET /debug/introspect/runtime  - 运行时信息
//	GET /debug/pprof/*             - Go pprof
//	GET /metrics                   - Prometheus 指标（启用时）
//	GET /health                    - 健康检查
//
// 通过 config.Introspect.Enable 启用。
package introspect
