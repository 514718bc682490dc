// Package xipfilter 提供命名 IP 范围表：把地址归类到包含它的范围所有者。
//
// # 数据模型
//
// 每个范围是闭区间 [Start, End]，端点以定宽规范键保存（见 xnet.Canonicalize）：
//
//	IPv4: "001.002.003.004"
//	IPv6: "2001:0db8:0000:0000:0000:0000:0000:0001"
//
// 同一地址族内规范键的字符串顺序就是数值顺序，因此插入和查询只需比较字符串。
// IPv4 与 IPv6 分别保存，互不影响。所有者名称去重后按首次出现顺序编号。
//
// # 构建
//
//	t := xipfilter.New()
//	if _, err := t.InsertRange("1.1.1.1", "1.1.1.9", "One"); err != nil {
//	    return err
//	}
//	if _, err := t.InsertCIDR("2001:db8::/32", "Two"); err != nil {
//	    return err
//	}
//
// 范围之间不允许重叠，冲突时返回 [*ConflictError]，表保持不变。
// 批量导入时可使用宽容模式，错误交给 [Reporter] 处理而不中断：
//
//	t := xipfilter.New(xipfilter.WithReporter(xipfilter.LogReporter(logger)))
//
// # 查询
//
//	name, ok := t.Match("10.0.0.1, 1.1.1.5") // 取第一个可解析的地址
//
// 查询是对有序列表的二分查找，从不失败。未被修改的表可以并发查询。
//
// # 持久化
//
// [Table.ToJSON] 与 [FromJSON] 使用如下格式，往返编码保持名称与条目顺序不变：
//
//	{"names":["One"],"ipv4":[["001.001.001.001","001.001.001.009",0]],"ipv6":[]}
package xipfilter
