package xmetrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
)

func newTestMeterProvider(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

// counterValues 按属性 key 的取值汇总名为 name 的 int64 计数器。
func counterValues(t *testing.T, reader *sdkmetric.ManualReader, name string, key attribute.Key) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(key)
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func histogramCount(t *testing.T, reader *sdkmetric.ManualReader, name string) uint64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var n uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok && m.Name == name {
				for _, dp := range h.DataPoints {
					n += dp.Count
				}
			}
		}
	}
	return n
}

func TestMatcher_CountsHitsAndMisses(t *testing.T) {
	mp, reader := newTestMeterProvider(t)

	tbl := xipfilter.New()
	_, err := tbl.InsertCIDR("10.0.0.0/8", "Private")
	require.NoError(t, err)

	m, err := NewMatcher(tbl, WithMeterProvider(mp), WithInstrumentationName("test"))
	require.NoError(t, err)

	name, ok := m.Match("10.1.2.3")
	assert.True(t, ok)
	assert.Equal(t, "Private", name)

	_, ok = m.Match("11.0.0.1")
	assert.False(t, ok)
	_, ok = m.MatchRange("not an ip")
	assert.False(t, ok)

	assert.Equal(t, map[string]int64{"hit": 1, "miss": 2},
		counterValues(t, reader, metricLookupTotal, "result"))
	assert.Equal(t, uint64(3), histogramCount(t, reader, metricLookupDuration))
}

func TestNewMatcher_Nil(t *testing.T) {
	_, err := NewMatcher(nil)
	assert.ErrorIs(t, err, ErrNilMatcher)
}

func TestNewMatcher_DefaultProvider(t *testing.T) {
	m, err := NewMatcher(xipfilter.New(), nil, WithMeterProvider(nil), WithInstrumentationName(""))
	require.NoError(t, err)
	_, ok := m.Match("1.2.3.4")
	assert.False(t, ok)
}

func TestCountingReporter(t *testing.T) {
	mp, reader := newTestMeterProvider(t)

	var col xipfilter.Collector
	rep, err := NewCountingReporter(&col, WithMeterProvider(mp))
	require.NoError(t, err)

	tbl := xipfilter.New(xipfilter.WithReporter(rep))
	_, err = tbl.InsertRange("1.1.1.1", "1.1.1.9", "A")
	require.NoError(t, err)

	tests := []struct {
		start, end string
	}{
		{"1.1.1.5", "1.1.2.0"},
		{"1.1.1.0", "1.1.1.1"},
		{"bad", "1.1.1.1"},
		{"2.2.2.2", "2.2.2.1"},
		{"3.3.3.3", "::1"},
	}
	for _, tt := range tests {
		idx, err := tbl.InsertRange(tt.start, tt.end, "B")
		require.NoError(t, err)
		assert.Equal(t, xipfilter.Rejected, idx)
	}

	assert.Equal(t, 5, col.Len())
	assert.Equal(t, map[string]int64{
		"conflict":          2,
		"invalid_address":   1,
		"non_sequential":    1,
		"mismatched_family": 1,
	}, counterValues(t, reader, metricInsertRejected, "kind"))
}

func TestCountingReporter_NilNext(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	rep, err := NewCountingReporter(nil, WithMeterProvider(mp))
	require.NoError(t, err)

	assert.NotPanics(t, func() { rep.Report(errors.New("other")) })
	assert.Equal(t, map[string]int64{"unknown": 1},
		counterValues(t, reader, metricInsertRejected, "kind"))
}
