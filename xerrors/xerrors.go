// Package xerrors 提供 idalloc 统一的错误处理工具。
//
// 约定：
//   - 每个组件在自己的 errors.go 中以 xerrors.New 声明哨兵错误
//   - 返回前用 Wrap / Wrapf 补充上下文，保留错误链
//   - 需要机器可读分类时用 WithCode 附加错误码
//   - 调用方通过 errors.Is 判断错误种类，通过 GetCode 提取错误码
package xerrors

import (
	"errors"
	"fmt"
)

// 通用哨兵错误
var (
	// ErrInvalidInput 参数或配置不合法（前置条件违反，不应重试）
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound 目标不存在
	ErrNotFound = errors.New("not found")

	// ErrUnavailable 后端暂不可用（可重试）
	ErrUnavailable = errors.New("unavailable")
)

// Wrap 用上下文信息包装错误，err 为 nil 时返回 nil。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 与 Wrap 相同，但支持格式化消息。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// CodedError 携带机器可读错误码的错误
type CodedError struct {
	Code  string
	Cause error
}

// WithCode 为错误附加错误码，err 为 nil 时返回 nil。
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return "[" + e.Code + "]"
	}
	return fmt.Sprintf("[%s] %v", e.Code, e.Cause)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// GetCode 返回错误链上最外层的错误码，没有则返回空串。
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// Must 在 err 非 nil 时 panic，仅用于初始化阶段。
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}

// 标准库函数再导出，调用方无需同时引入 errors
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)
