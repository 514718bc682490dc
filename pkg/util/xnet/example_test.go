package xnet_test

import (
	"fmt"

	"github.com/omeyang/xipfilter/pkg/util/xnet"
)

func ExampleCanonicalize() {
	addr, err := xnet.ParseAddr("1.2.3.4")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	ver, key := xnet.Canonicalize(addr)
	fmt.Println(ver, key)

	addr, _ = xnet.ParseAddr("1:2:3:4::")
	ver, key = xnet.Canonicalize(addr)
	fmt.Println(ver, key)
	// Output:
	// IPv4 001.002.003.004
	// IPv6 0001:0002:0003:0004:0000:0000:0000:0000
}

func ExampleParseCandidate() {
	addr, ok := xnet.ParseCandidate("unknown, 10.0.0.1, 9.9.9.9")
	fmt.Println(addr, ok)

	_, ok = xnet.ParseCandidate("foo, bar")
	fmt.Println(ok)
	// Output:
	// 10.0.0.1 true
	// false
}

func ExamplePrefixBounds() {
	first, last, err := xnet.PrefixBounds("1.2.5.0/24")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(first, last)
	// Output:
	// 1.2.5.0 1.2.5.255
}
