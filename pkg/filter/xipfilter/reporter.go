package xipfilter

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/omeyang/xipfilter/pkg/observability/xlog"
)

// Reporter 接收宽容模式下被拒绝的插入错误。
//
// 错误的 Error() 即可读消息；用 errors.Is / errors.As 区分类别。
// 同一张表的插入本身需要串行化，因此 Report 不会被并发调用。
type Reporter interface {
	Report(err error)
}

// ReporterFunc 是函数形式的 Reporter。
type ReporterFunc func(err error)

// Report 实现 Reporter。
func (f ReporterFunc) Report(err error) {
	f(err)
}

// MessageReporter 只把错误消息交给 fn，适配只接受字符串的日志函数。
func MessageReporter(fn func(msg string)) Reporter {
	return ReporterFunc(func(err error) {
		fn(err.Error())
	})
}

// LogReporter 把拒绝记录为 Warn 级别日志。
// 冲突错误额外带上已有范围的所有者和端点。
func LogReporter(logger xlog.Logger) Reporter {
	if logger == nil {
		logger = xlog.Discard()
	}
	logger = logger.With(xlog.Component("xipfilter"))
	return ReporterFunc(func(err error) {
		attrs := []slog.Attr{xlog.Err(err), slog.String("kind", ErrorKind(err))}
		var ce *ConflictError
		if errors.As(err, &ce) {
			attrs = append(attrs,
				xlog.Owner(ce.Rejected.Name),
				xlog.IPRange("rejected", ce.Rejected.Start, ce.Rejected.End),
				xlog.IPRange("existing", ce.Existing.Start, ce.Existing.End),
				slog.String("existing_owner", ce.Existing.Name),
			)
		}
		logger.Warn(context.Background(), "ip range rejected", attrs...)
	})
}

// Collector 在内存中保存被拒绝的错误，可并发读取。
type Collector struct {
	mu   sync.Mutex
	errs []error
}

// Report 实现 Reporter。
func (c *Collector) Report(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

// Errors 返回已收集错误的副本。
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}

// Len 返回已收集的错误数。
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Err 把已收集的错误合并为一个，没有错误时返回 nil。
func (c *Collector) Err() error {
	return errors.Join(c.Errors()...)
}

// Reset 清空已收集的错误。
func (c *Collector) Reset() {
	c.mu.Lock()
	c.errs = nil
	c.mu.Unlock()
}

// MultiReporter 把错误依次交给多个 Reporter，nil 项会被忽略。
func MultiReporter(reporters ...Reporter) Reporter {
	rs := make([]Reporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			rs = append(rs, r)
		}
	}
	return ReporterFunc(func(err error) {
		for _, r := range rs {
			r.Report(err)
		}
	})
}
