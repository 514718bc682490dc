package xmetrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
)

// CountingReporter 按错误类别统计被拒绝的插入，再交给下一个 Reporter。
type CountingReporter struct {
	next     xipfilter.Reporter
	rejected metric.Int64Counter
}

var _ xipfilter.Reporter = (*CountingReporter)(nil)

// NewCountingReporter 创建计数 Reporter，next 可以为 nil。
func NewCountingReporter(next xipfilter.Reporter, opts ...Option) (*CountingReporter, error) {
	rejected, err := newMeter(opts).Int64Counter(
		metricInsertRejected,
		metric.WithDescription("rejected ip range insertions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}
	return &CountingReporter{next: next, rejected: rejected}, nil
}

// Report 实现 xipfilter.Reporter。
func (r *CountingReporter) Report(err error) {
	r.rejected.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", xipfilter.ErrorKind(err))))
	if r.next != nil {
		r.next.Report(err)
	}
}
