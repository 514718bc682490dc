// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xnet: IP 地址工具库，基于 net/netip + go4.org/netipx，提供定长规范键、候选地址解析与区间换算
package util
