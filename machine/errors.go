package machine

import "github.com/ceyewan/idalloc/xerrors"

var (
	// ErrMachineIDOverflow namespace 下没有空闲机器号，调用方应中止启动
	ErrMachineIDOverflow = xerrors.New("machine: machine id overflow")

	// ErrInvalidInput namespace、instance 或位宽非法
	ErrInvalidInput = xerrors.New("machine: invalid input")

	// ErrStoreFailed 后端访问失败，可重试
	ErrStoreFailed = xerrors.New("machine: store failed")

	ErrConfigNil    = xerrors.New("machine: config is nil")
	ErrConnectorNil = xerrors.New("machine: connector is nil")
	ErrClosed       = xerrors.New("machine: distributor closed")

	errNoIPv4 = xerrors.New("no valid ipv4 address found")
)

const (
	codeMachineIDOverflow = "machine_id_overflow"
	codeMachineBitShrunk  = "machine_bit_too_small"
	codeStoreFailed       = "machine_store_failed"
)
