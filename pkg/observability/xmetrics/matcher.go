package xmetrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
)

var (
	hitAttrs  = metric.WithAttributeSet(attribute.NewSet(attribute.String("result", "hit")))
	missAttrs = metric.WithAttributeSet(attribute.NewSet(attribute.String("result", "miss")))
)

// Matcher 包装任意 xipfilter.Matcher 并记录查询次数和耗时。
type Matcher struct {
	m        xipfilter.Matcher
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

var _ xipfilter.Matcher = (*Matcher)(nil)

// NewMatcher 创建带指标的 Matcher。
func NewMatcher(m xipfilter.Matcher, opts ...Option) (*Matcher, error) {
	if m == nil {
		return nil, ErrNilMatcher
	}
	meter := newMeter(opts)

	total, err := meter.Int64Counter(
		metricLookupTotal,
		metric.WithDescription("ip range lookups"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}

	duration, err := meter.Float64Histogram(
		metricLookupDuration,
		metric.WithDescription("ip range lookup duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}

	return &Matcher{m: m, total: total, duration: duration}, nil
}

// MatchRange 实现 xipfilter.Matcher。
func (m *Matcher) MatchRange(text string) (xipfilter.Range, bool) {
	start := time.Now()
	r, ok := m.m.MatchRange(text)
	elapsed := time.Since(start).Seconds()

	attrs := missAttrs
	if ok {
		attrs = hitAttrs
	}
	ctx := context.Background()
	m.total.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed, attrs)
	return r, ok
}

// Match 实现 xipfilter.Matcher。
func (m *Matcher) Match(text string) (string, bool) {
	r, ok := m.MatchRange(text)
	if !ok {
		return "", false
	}
	return r.Name, true
}
