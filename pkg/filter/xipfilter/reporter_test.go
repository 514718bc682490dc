package xipfilter_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/observability/xlog"
)

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := xlog.New().SetOutput(&buf).SetFormat("json").Build()
	require.NoError(t, err)

	tbl := xipfilter.New(xipfilter.WithReporter(xipfilter.LogReporter(logger)))
	_, err = tbl.InsertRange("2.2.2.2", "2.2.3.3", "Base")
	require.NoError(t, err)
	_, err = tbl.InsertRange("2.2.2.10", "2.2.2.12", "Inner")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "ip range rejected", rec["msg"])
	assert.Equal(t, "xipfilter", rec[xlog.KeyComponent])
	assert.Equal(t, "conflict", rec["kind"])
	assert.Equal(t, "Inner", rec[xlog.KeyOwner])
	assert.Equal(t, "Base", rec["existing_owner"])
	assert.Equal(t, map[string]any{"start": "002.002.002.002", "end": "002.002.003.003"}, rec["existing"])
	assert.Contains(t, rec[xlog.KeyError], "IP range conflict")
}

func TestLogReporter_NilLogger(t *testing.T) {
	r := xipfilter.LogReporter(nil)
	assert.NotPanics(t, func() { r.Report(xipfilter.ErrInvalidAddress) })
}

func TestCollector(t *testing.T) {
	var c xipfilter.Collector
	assert.NoError(t, c.Err())

	tbl := xipfilter.New(xipfilter.WithReporter(&c))
	_, _ = tbl.InsertRange("foo", "bar", "")
	_, _ = tbl.InsertCIDR("1.2.3.4/99", "")

	require.Equal(t, 2, c.Len())
	errs := c.Errors()
	assert.ErrorIs(t, errs[0], xipfilter.ErrInvalidAddress)
	assert.ErrorIs(t, errs[1], xipfilter.ErrInvalidCIDR)

	joined := c.Err()
	assert.ErrorIs(t, joined, xipfilter.ErrInvalidAddress)
	assert.ErrorIs(t, joined, xipfilter.ErrInvalidCIDR)

	c.Reset()
	assert.Zero(t, c.Len())
}

func TestMultiReporter(t *testing.T) {
	var a, b xipfilter.Collector
	var kinds []string
	r := xipfilter.MultiReporter(&a, nil, &b, xipfilter.ReporterFunc(func(err error) {
		kinds = append(kinds, xipfilter.ErrorKind(err))
	}))

	tbl := xipfilter.New(xipfilter.WithReporter(r))
	_, err := tbl.InsertRange("2.2.2.2", "1.1.1.1", "")
	require.NoError(t, err)

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, []string{"non_sequential"}, kinds)
}
