// Package xipreload 负责在线更新范围表。
//
// xipfilter.Table 本身不加锁，在线更新的方式是构建一张新表后整体替换：
//
//	h := xipreload.NewHolder(initial)
//	name, ok := h.Match(r.Header.Get("X-Forwarded-For"))
//
// 触发替换的方式：
//
//   - 手动：[Holder.Swap]、[Holder.Reload]
//   - 文件变化：[WatchFile] 监视 JSON 表文件
//   - 定时：[NewRefresher] 按 cron 表达式从任意 xipload.Source 重建
//
// 替换失败时 Holder 保留之前的表，查询不受影响。
package xipreload
