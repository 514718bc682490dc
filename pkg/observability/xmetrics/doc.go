// Package xmetrics 为范围表的查询和插入拒绝提供 OpenTelemetry 指标。
//
// # 使用示例
//
//	m, _ := xmetrics.NewMatcher(holder, xmetrics.WithMeterProvider(mp))
//	name, ok := m.Match(clientIP)
//
//	rep, _ := xmetrics.NewCountingReporter(xipfilter.LogReporter(logger))
//	tbl := xipfilter.New(xipfilter.WithReporter(rep))
//
// # 指标命名
//
//   - xipfilter.lookup.total：查询次数，属性 result=hit|miss
//   - xipfilter.lookup.duration：查询耗时（秒）
//   - xipfilter.insert.rejected：被拒绝的插入次数，属性 kind 取自 xipfilter.ErrorKind
package xmetrics
