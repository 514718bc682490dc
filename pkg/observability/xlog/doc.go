// Package xlog 基于 log/slog 的结构化日志库。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、文件轮转）
//   - 动态级别调整（运行时热更新）
//   - 范围表场景的便捷属性：[Owner]、[Source]、[Line]、[IPRange]
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//	    SetLevelString("debug").
//	    SetFormat("json").
//	    SetRotation("/var/log/xipfilter/build.log", xlog.Rotation{MaxSizeMB: 50}).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
//	logger.Warn(ctx, "ip range rejected", xlog.Owner("ExampleNet"), xlog.Err(err))
//
// 未注入 logger 的组件使用 [Discard]，不产生任何输出。
//
// # 日志级别
//
// LevelDebug(-4)、LevelInfo(0)、LevelWarn(4)、LevelError(8)。
// 可通过 [ParseLevel] 从字符串解析，Level 实现 encoding.TextUnmarshaler。
package xlog
