package xipload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/omeyang/xipfilter/pkg/observability/xlog"
)

// kitLogger 把 go-kit 风格的键值日志转发到 xlog，供 objstore provider 使用。
type kitLogger struct {
	logger xlog.Logger
}

var _ log.Logger = kitLogger{}

// newKitLogger 返回转发到 logger 的 go-kit Logger，logger 为 nil 时丢弃所有日志。
func newKitLogger(logger xlog.Logger) log.Logger {
	if logger == nil {
		return log.NewNopLogger()
	}
	return kitLogger{logger: logger.With(xlog.Component("objstore"))}
}

// Log 实现 log.Logger。"level" 和 "msg" 键被提取为级别和消息，其余键转为属性。
func (k kitLogger) Log(keyvals ...any) error {
	lvl, msg := "info", ""
	levelKey := fmt.Sprint(level.Key())
	attrs := make([]slog.Attr, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		var val any = "(MISSING)"
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		switch key {
		case levelKey:
			lvl = fmt.Sprint(val)
		case "msg":
			msg = fmt.Sprint(val)
		default:
			attrs = append(attrs, slog.Any(key, val))
		}
	}

	ctx := context.Background()
	switch lvl {
	case "debug":
		k.logger.Debug(ctx, msg, attrs...)
	case "warn":
		k.logger.Warn(ctx, msg, attrs...)
	case "error":
		k.logger.Error(ctx, msg, attrs...)
	default:
		k.logger.Info(ctx, msg, attrs...)
	}
	return nil
}
