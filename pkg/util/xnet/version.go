package xnet

import "net/netip"

// Version 表示 IP 协议版本（地址族）。
type Version uint8

const (
	// V0 表示无效或未知的 IP 版本。
	V0 Version = 0
	// V4 表示 IPv4。
	V4 Version = 4
	// V6 表示 IPv6。
	V6 Version = 6
)

// 规范键宽度。
const (
	// KeyWidthV4 IPv4 规范键长度："xxx.xxx.xxx.xxx"。
	KeyWidthV4 = 15
	// KeyWidthV6 IPv6 规范键长度："xxxx:xxxx:xxxx:xxxx:xxxx:xxxx:xxxx:xxxx"。
	KeyWidthV6 = 39
)

// String 返回版本的字符串表示。
func (v Version) String() string {
	switch v {
	case V4:
		return "IPv4"
	case V6:
		return "IPv6"
	default:
		return "unknown"
	}
}

// KeyWidth 返回该地址族规范键的固定宽度，无效版本返回 0。
func (v Version) KeyWidth() int {
	switch v {
	case V4:
		return KeyWidthV4
	case V6:
		return KeyWidthV6
	default:
		return 0
	}
}

// AddrVersion 返回 addr 的 IP 版本（V4 或 V6）。
// IPv4-mapped IPv6 地址（"::ffff:1.2.3.4"）属于 V6。
// 无效地址返回 V0。
func AddrVersion(addr netip.Addr) Version {
	if addr.Is4() {
		return V4
	}
	if addr.IsValid() {
		return V6
	}
	return V0
}

// KeyVersion 根据规范键宽度推断地址族。
// 只检查长度，不校验内容；需要完整校验时使用 [ParseCanonicalKey]。
func KeyVersion(key string) Version {
	switch len(key) {
	case KeyWidthV4:
		return V4
	case KeyWidthV6:
		return V6
	default:
		return V0
	}
}
