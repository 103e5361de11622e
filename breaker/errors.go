package breaker

import "github.com/ceyewan/idalloc/xerrors"

var (
	ErrConfigNil = xerrors.New("breaker: config is nil")
	ErrKeyEmpty  = xerrors.New("breaker: key is empty")
	ErrOpenState = xerrors.New("breaker: circuit breaker is open")

	// ErrResultType Fallback 返回值与 Call 的类型参数不符
	ErrResultType = xerrors.New("breaker: unexpected result type")
)
