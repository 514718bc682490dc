// Package xiphttp 以 HTTP 接口提供范围查询。
//
// 路由：
//
//	GET  /v1/match?ip=A&ip=B   查询一个或多个地址
//	POST /v1/match             请求体为地址的 JSON 数组
//	GET  /v1/stats             当前表的名称数和各地址族条目数
//	GET  /healthz              已加载表时返回 200，否则 503
//	GET  /metrics              Prometheus 指标
//
// 查询结果总是数组，未命中的地址 found 为 false。无法解析的地址按未命中处理。
//
// 每个请求都有一个 server span 和 X-Request-ID 响应头，请求携带的
// traceparent 会成为 span 的父级。
package xiphttp
