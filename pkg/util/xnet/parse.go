package xnet

import (
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// ParseAddr 解析单个 IP 地址字符串，输入会自动去除首尾空白。
//
// 成功时返回的地址总是有效的。IPv4-mapped IPv6 保持 IPv6 形式，不做归一化。
// 带 IPv6 zone ID 的地址（如 "fe80::1%eth0"）返回 [ErrInvalidAddress]，
// 因为规范键不保存 zone，保留它会让同一地址出现两种写法。
func ParseAddr(s string) (netip.Addr, error) {
	s = strings.TrimSpace(s)
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if addr.Zone() != "" {
		return netip.Addr{}, fmt.Errorf("%w: IPv6 zone ID is not supported: %s", ErrInvalidAddress, s)
	}
	return addr, nil
}

// IsValidIP 报告 s 是否为 [ParseAddr] 可接受的地址。
func IsValidIP(s string) bool {
	_, err := ParseAddr(s)
	return err == nil
}

// ParseCandidate 从候选文本中选出第一个合法地址。
//
// 候选文本可以是单个地址，也可以是逗号分隔的列表（如 X-Forwarded-For 头）。
// 每一段去除空白后按从左到右的顺序尝试解析，返回第一个可解析的地址；
// 没有任何一段可解析时返回 false。zone ID 会被丢弃。
//
// 注意：这里不做任何可信代理判断。对于伪造的转发头，选择正确的位置是调用方的责任。
func ParseCandidate(text string) (netip.Addr, bool) {
	for len(text) > 0 {
		part := text
		if i := strings.IndexByte(text, ','); i >= 0 {
			part, text = text[:i], text[i+1:]
		} else {
			text = ""
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if addr, err := netip.ParseAddr(part); err == nil {
			return addr.WithZone(""), true
		}
	}
	return netip.Addr{}, false
}

// PrefixBounds 把 CIDR 前缀展开为首尾地址。
//
// 主机位会被清零（"1.2.3.4/24" → 1.2.3.0 - 1.2.3.255）。
// IPv4-mapped IPv6 前缀（如 "::ffff:1.2.3.0/120"）按普通 IPv6 前缀展开。
func PrefixBounds(cidr string) (first, last netip.Addr, err error) {
	s := strings.TrimSpace(cidr)
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("%w: %w", ErrInvalidPrefix, err)
	}
	r := netipx.RangeOfPrefix(prefix.Masked())
	if !r.IsValid() {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("%w: %s", ErrInvalidPrefix, s)
	}
	return r.From(), r.To(), nil
}
