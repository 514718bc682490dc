// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持动态级别与 lumberjack 文件轮转
//   - xmetrics: 匹配指标，基于 OpenTelemetry metric，统计命中、未命中与表规模
//
// HTTP 层的链路追踪与 Prometheus 暴露见 filter/xiphttp。
package observability
