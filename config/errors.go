package config

import "github.com/ceyewan/idalloc/xerrors"

// ErrValidationFailed 配置为空或无法使用
var ErrValidationFailed = xerrors.New("config: validation failed")

// IsValidationFailed 判断是否为配置校验失败
func IsValidationFailed(err error) bool {
	return xerrors.Is(err, ErrValidationFailed)
}
