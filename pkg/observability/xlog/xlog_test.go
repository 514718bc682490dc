package xlog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xipfilter/pkg/observability/xlog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  xlog.Level
		err   bool
	}{
		{"debug", xlog.LevelDebug, false},
		{"INFO", xlog.LevelInfo, false},
		{"Warn", xlog.LevelWarn, false},
		{"warning", xlog.LevelWarn, false},
		{" error ", xlog.LevelError, false},
		{"", xlog.LevelInfo, true},
		{"trace", xlog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := xlog.ParseLevel(tt.input)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var l xlog.Level
	require.NoError(t, l.UnmarshalText([]byte("debug")))
	assert.Equal(t, xlog.LevelDebug, l)
	assert.Equal(t, "DEBUG", l.String())
	assert.Error(t, l.UnmarshalText([]byte("loud")))
}

func TestBuilder_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().
		SetOutput(&buf).
		SetFormat("json").
		SetLevelString("debug").
		Build()
	require.NoError(t, err)
	defer func() { require.NoError(t, cleanup()) }()

	logger.With(xlog.Component("loader")).Warn(context.Background(), "ip range rejected",
		xlog.Owner("One"),
		xlog.Source("a.csv"),
		xlog.Line(3),
		xlog.IPRange("range", "001.001.001.001", "001.001.001.009"),
		xlog.Err(errors.New("boom")),
	)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "ip range rejected", rec["msg"])
	assert.Equal(t, "loader", rec[xlog.KeyComponent])
	assert.Equal(t, "One", rec[xlog.KeyOwner])
	assert.Equal(t, "a.csv", rec[xlog.KeySource])
	assert.EqualValues(t, 3, rec[xlog.KeyLine])
	assert.Equal(t, "boom", rec[xlog.KeyError])
	assert.Equal(t, map[string]any{"start": "001.001.001.001", "end": "001.001.001.009"}, rec["range"])
}

func TestBuilder_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := xlog.New().SetOutput(&buf).SetLevel(xlog.LevelWarn).Build()
	require.NoError(t, err)

	ctx := context.Background()
	logger.Info(ctx, "hidden")
	assert.Zero(t, buf.Len())

	logger.SetLevel(xlog.LevelDebug)
	assert.Equal(t, xlog.LevelDebug, logger.GetLevel())
	logger.Debug(ctx, "visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestBuilder_Errors(t *testing.T) {
	_, _, err := xlog.New().SetFormat("xml").Build()
	assert.Error(t, err)

	_, _, err = xlog.New().SetLevelString("loud").Build()
	assert.Error(t, err)

	_, _, err = xlog.New().SetRotation("x.log", xlog.Rotation{MaxSizeMB: -1}).Build()
	assert.Error(t, err)

	// 第一个错误生效
	_, _, err = xlog.New().SetFormat("xml").SetLevelString("loud").Build()
	assert.ErrorContains(t, err, "format")
}

func TestBuilder_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.log")
	logger, cleanup, err := xlog.New().SetRotation(path, xlog.Rotation{}).Build()
	require.NoError(t, err)

	logger.Error(context.Background(), "written to file", slog.String("k", "v"))
	require.NoError(t, cleanup())
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestDiscard(t *testing.T) {
	logger := xlog.Discard()
	logger.Error(context.Background(), "nothing")
	logger.With(xlog.Count(1)).Info(context.TODO(), "nothing")
	assert.Greater(t, logger.GetLevel(), xlog.LevelError)
	assert.Equal(t, slog.Attr{}, xlog.Err(nil))
}
