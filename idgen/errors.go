package idgen

import "github.com/ceyewan/idalloc/xerrors"

var (
	// ErrClockBackwards 时钟回拨超过容忍范围
	ErrClockBackwards = xerrors.New("idgen: clock moved backwards too much")

	// ErrInvalidInput 配置不合法
	ErrInvalidInput = xerrors.New("idgen: invalid input")

	// ErrMachineIDLost 机器号绑定已被后端收回，继续生成可能与其他实例重复
	ErrMachineIDLost = xerrors.New("idgen: machine id binding lost")

	// ErrTimestampOverflow 距 Epoch 的毫秒数超出 41 位
	ErrTimestampOverflow = xerrors.New("idgen: timestamp overflow")

	// ErrClosed 生成器已关闭
	ErrClosed = xerrors.New("idgen: generator closed")

	ErrConfigNil      = xerrors.New("idgen: config is nil")
	ErrDistributorNil = xerrors.New("idgen: distributor is nil")
)
