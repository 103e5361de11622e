package segment

import "github.com/ceyewan/idalloc/xerrors"

var (
	// ErrAllocationFailed 后端推进计数器失败（I/O、超时、写冲突、熔断），可重试
	ErrAllocationFailed = xerrors.New("segment: allocation failed")

	// ErrInvalidInput step、段数、命名空间等参数非法，不应重试
	ErrInvalidInput = xerrors.New("segment: invalid input")

	ErrConfigNil    = xerrors.New("segment: config is nil")
	ErrConnectorNil = xerrors.New("segment: connector is nil")
)

const (
	codeNextMaxIDFailed  = "next_max_id_failed"
	codeNonMonotonic     = "non_monotonic_max_id"
	codeStepNotPositive  = "step_must_be_positive"
	codeSegmentsNotPos   = "segments_must_be_positive"
	codeStepOverflow     = "step_overflow"
	codeUnsupportedDrive = "unsupported_driver"
)
