// Package clog 为 idalloc 提供基于 log/slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层 slog 实现
//   - 层级命名空间，组件通过 WithNamespace 派生子 Logger
//   - 可从 Context 中提取字段（trace_id 等）
//   - Discard() 提供静默实现，组件未注入 Logger 时使用
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{Level: "info", Format: "json"})
//	logger.Info("segment fetched", clog.String("namespace", "order"), clog.Int64("max_id", 200))
//
//	segLogger := logger.WithNamespace("segment")
package clog

import "context"

// Logger 日志接口
//
// 每个级别都提供带 Context 和不带 Context 两个版本，
// 带 Context 的版本会按 WithContextField 配置提取字段。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建带预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 追加命名空间，多级之间以 "." 连接
	//
	//	logger.WithNamespace("idalloc").WithNamespace("segment") // namespace=idalloc.segment
	WithNamespace(parts ...string) Logger

	// SetLevel 运行时调整日志级别，对所有派生 Logger 生效
	SetLevel(level Level) error

	// Flush 同步缓冲区
	Flush()
}
