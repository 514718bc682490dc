// Package xipcache 为范围查询提供 LRU 结果缓存。
//
// 查询本身是对有序列表的二分查找，已经很快；缓存主要省去候选文本的解析
// 和规范化，适合同一批客户端地址反复出现的场景。
//
// 与 xipreload.Holder 配合时，在表替换后清空缓存：
//
//	var c *xipcache.Cache
//	h := xipreload.NewHolder(tbl, xipreload.WithOnSwap(func(_, _ *xipfilter.Table) {
//	    c.Purge()
//	}))
//	c, err := xipcache.New(h, xipcache.Config{Size: 100_000, TTL: time.Minute})
package xipcache
