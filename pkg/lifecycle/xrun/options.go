package xrun

import (
	"os"
	"syscall"

	"github.com/omeyang/xipfilter/pkg/observability/xlog"
)

// Option 配置 Group。
type Option func(*groupOptions)

type groupOptions struct {
	logger  xlog.Logger
	name    string
	signals []os.Signal
	noSig   bool
}

func defaultOptions() *groupOptions {
	return &groupOptions{logger: xlog.Discard(), name: "xrun"}
}

// DefaultSignals 返回默认监听的信号：SIGINT、SIGTERM。每次返回新切片。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// WithLogger 设置生命周期日志，默认丢弃。
func WithLogger(logger xlog.Logger) Option {
	return func(o *groupOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置日志中的 group 名称，默认 "xrun"。
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 设置 Run 监听的信号，空列表使用 DefaultSignals。
func WithSignals(signals ...os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *groupOptions) {
		o.signals = copied
	}
}

// WithoutSignalHandler 让 Run 不监听信号，退出只由 ctx 或服务错误触发。
func WithoutSignalHandler() Option {
	return func(o *groupOptions) {
		o.noSig = true
	}
}
