package xnet

import (
	"fmt"
	"net/netip"
)

const hexDigits = "0123456789abcdef"

// Canonicalize 返回 addr 的地址族和规范键。
// IPv4: 每段 3 位十进制，带前导零（如 "192.168.001.001"）。
// IPv6（含 IPv4-mapped IPv6）: 每段 4 位小写十六进制，冒号分隔，共 8 段。
// 无效地址返回 (V0, "")。
func Canonicalize(addr netip.Addr) (Version, string) {
	switch AddrVersion(addr) {
	case V4:
		return V4, formatKeyV4(addr.As4())
	case V6:
		return V6, formatKeyV6(addr.As16())
	default:
		return V0, ""
	}
}

// FormatKey 返回 addr 的规范键，无效地址返回空字符串。
func FormatKey(addr netip.Addr) string {
	_, key := Canonicalize(addr)
	return key
}

// 手写格式化避免 fmt.Sprintf 的反射开销和额外分配。
func formatKeyV4(b [4]byte) string {
	var buf [KeyWidthV4]byte
	for i := 0; i < 4; i++ {
		off := i * 4
		if i > 0 {
			buf[off-1] = '.'
		}
		buf[off+0] = '0' + b[i]/100
		buf[off+1] = '0' + (b[i]/10)%10
		buf[off+2] = '0' + b[i]%10
	}
	return string(buf[:])
}

func formatKeyV6(b [16]byte) string {
	var buf [KeyWidthV6]byte
	for i := 0; i < 8; i++ {
		off := i * 5
		if i > 0 {
			buf[off-1] = ':'
		}
		hi, lo := b[2*i], b[2*i+1]
		buf[off+0] = hexDigits[hi>>4]
		buf[off+1] = hexDigits[hi&0x0f]
		buf[off+2] = hexDigits[lo>>4]
		buf[off+3] = hexDigits[lo&0x0f]
	}
	return string(buf[:])
}

// ParseCanonicalKey 解析规范键，返回对应地址。
// 只接受 [Canonicalize] 的输出格式：定宽、带前导零、小写十六进制。
// 用于校验持久化数据中的范围端点。
func ParseCanonicalKey(key string) (netip.Addr, error) {
	switch KeyVersion(key) {
	case V4:
		var b [4]byte
		for i := 0; i < 4; i++ {
			off := i * 4
			if i > 0 && key[off-1] != '.' {
				return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
			}
			n := 0
			for _, c := range []byte(key[off : off+3]) {
				if c < '0' || c > '9' {
					return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
				}
				n = n*10 + int(c-'0')
			}
			if n > 255 {
				return netip.Addr{}, fmt.Errorf("%w: octet out of range in %q", ErrInvalidKey, key)
			}
			b[i] = byte(n)
		}
		return netip.AddrFrom4(b), nil
	case V6:
		var b [16]byte
		for i := 0; i < 8; i++ {
			off := i * 5
			if i > 0 && key[off-1] != ':' {
				return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
			}
			for j := 0; j < 4; j++ {
				v, ok := hexValue(key[off+j])
				if !ok {
					return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
				}
				if j%2 == 0 {
					b[2*i+j/2] = v << 4
				} else {
					b[2*i+j/2] |= v
				}
			}
		}
		return netip.AddrFrom16(b), nil
	default:
		return netip.Addr{}, fmt.Errorf("%w: unexpected length %d", ErrInvalidKey, len(key))
	}
}

// 大写十六进制会破坏与小写键的字典序一致性，因此不接受。
func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}
