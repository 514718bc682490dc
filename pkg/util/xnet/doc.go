// Package xnet 提供 IP 范围分类所需的地址工具。
//
// xnet 基于 Go 标准库 [net/netip] 和社区库 [go4.org/netipx] 构建，
// 负责把文本解析为 [netip.Addr]，并转换为定宽、可按字符串排序的规范键（canonical key）。
//
// # 核心功能
//
//   - version.go: 地址族 [Version] 及 [AddrVersion]、[KeyVersion] 判断函数
//   - canonical.go: [Canonicalize] 生成规范键，[ParseCanonicalKey] 反向解析
//   - parse.go: [ParseAddr] 单地址解析，[ParseCandidate] 候选列表解析，[PrefixBounds] CIDR 展开
//
// # 规范键格式
//
// 同一地址族内，规范键的字符串比较结果与地址数值比较结果一致：
//
//	IPv4: "001.002.003.004"                          （4 段 3 位十进制，宽度 15）
//	IPv6: "0001:0002:0003:0004:0000:0000:0000:0000"  （8 段 4 位小写十六进制，宽度 39）
//
// 两种宽度不会互相比较，调用方需要先按 [Version] 分流。
//
// # 快速示例
//
//	addr, _ := xnet.ParseAddr("1.2.3.4")
//	ver, key := xnet.Canonicalize(addr)
//	fmt.Println(ver, key) // IPv4 001.002.003.004
//
//	addr, ok := xnet.ParseCandidate("unknown, 10.0.0.1, 9.9.9.9")
//	fmt.Println(addr, ok) // 10.0.0.1 true
//
//	first, last, _ := xnet.PrefixBounds("1.2.5.0/24")
//	fmt.Println(first, last) // 1.2.5.0 1.2.5.255
//
// # 设计决策
//
//   - [ParseAddr] 是唯一的类型化解析入口：成功返回有效的 [netip.Addr]，失败返回
//     [ErrInvalidAddress]，调用方无需再做零散的合法性判断
//   - IPv4-mapped IPv6 地址（如 "::ffff:1.2.3.4"）属于 IPv6 地址族，与纯 IPv4 不互通
//   - [ParseAddr] 拒绝带 zone ID 的地址（如 "fe80::1%eth0"），范围表不保存 zone 信息；
//     [ParseCandidate] 则丢弃 zone 后继续匹配，因此范围端点不能带 zone，查询地址可以
//   - [ParseCandidate] 只做"从左到右第一个合法地址"的选择，选取可信位置是调用方的责任
//
// # 错误处理
//
// 预定义错误变量支持 errors.Is 判断：
//
//	_, _, err := xnet.PrefixBounds("1.2.3.4/99")
//	if errors.Is(err, xnet.ErrInvalidPrefix) {
//	    // 处理无效 CIDR
//	}
package xnet
