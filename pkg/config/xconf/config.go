package xconf

import "github.com/knadh/koanf/v2"

// Format 配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 是已加载的配置。
//
// 只补充 koanf 没有的部分：按路径解码到结构体、整体重载。
// 其他读取操作直接使用 Client()。
type Config interface {
	// Client 返回当前的 koanf 实例，Reload 之后旧实例仍可读但不再更新。
	Client() *koanf.Koanf

	// Unmarshal 把 path 下的配置解码到 target，path 为空时解码全部。
	// 字符串形式的时长（如 "30s"）会转换为 time.Duration。
	Unmarshal(path string, target any) error

	// Reload 重新读取配置文件，失败时保留旧配置。从字节创建的配置返回 ErrNotReloadable。
	Reload() error

	// Path 返回配置文件路径，从字节创建时为空。
	Path() string

	// Format 返回配置格式。
	Format() Format
}

// Option 配置加载选项。
type Option func(*options)

type options struct {
	delim string
	tag   string
}

func defaultOptions() *options {
	return &options{delim: ".", tag: "koanf"}
}

// WithDelim 设置键路径分隔符，默认 "."。
func WithDelim(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// WithTag 设置解码使用的结构体标签，默认 "koanf"。
func WithTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.tag = tag
		}
	}
}
