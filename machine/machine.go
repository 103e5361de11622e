// Package machine 为基于时间的 ID（Snowflake）分配集群内唯一的机器号。
//
// 在同一个 namespace 下，每个运行实例（InstanceID）绑定 [0, 2^machineBit) 中的一个整数，
// 任意时刻互不相同。Distribute 对同一实例幂等，Revert 释放绑定且可重复调用。
// 号空间占满时返回 ErrMachineIDOverflow，调用方不能在没有机器号的情况下继续生成 ID。
//
// 后端：
//   - memory: 进程内，测试与单机使用
//   - redis:  两张哈希表 + Lua 脚本原子分配最小空闲号
//   - etcd:   事务抢占 + 租约保活，进程崩溃后绑定随租约过期自动回收
//
// 基本使用：
//
//	dist, _ := machine.New(&machine.Config{Driver: machine.DriverRedis}, machine.WithRedisConnector(conn))
//	defer dist.Close(ctx)
//	id, err := machine.DistributeDefault(ctx, dist, "order", machine.NewInstanceID())
package machine

import (
	"context"
)

const (
	// DefaultMachineBit Snowflake 默认机器号位宽
	DefaultMachineBit = 10
	MinMachineBit     = 1
	MaxMachineBit     = 31
)

// InstanceID 运行实例标识，同一 namespace 内唯一
type InstanceID string

func (i InstanceID) String() string { return string(i) }

// MaxMachineID 位宽 bits 下的最大机器号 2^bits-1
func MaxMachineID(bits int) int64 {
	return 1<<bits - 1
}

// TotalMachineIDs 位宽 bits 下的机器号总数 2^bits
func TotalMachineIDs(bits int) int64 {
	return 1 << bits
}

// Distributor 机器号分配器，所有方法并发安全
type Distributor interface {
	// Distribute 为 instance 分配或返回已有的机器号，范围 [0, 2^machineBit)
	Distribute(ctx context.Context, namespace string, machineBit int, instance InstanceID) (int64, error)

	// Revert 释放 instance 的绑定，未绑定时直接返回 nil
	Revert(ctx context.Context, namespace string, instance InstanceID) error

	// Close 释放后端资源；etcd 后端会撤销租约，本进程的全部绑定随之删除
	Close(ctx context.Context) error

	// Lost 返回的通道在绑定被后端收回时关闭（etcd 租约过期或 Close），
	// 此后该机器号可能已分给其他实例，持有者必须停止使用。
	// 后端不会收回绑定或实例未经本分配器绑定时返回 nil。
	Lost(namespace string, instance InstanceID) <-chan struct{}
}

// DistributeDefault 使用 DefaultMachineBit 分配
func DistributeDefault(ctx context.Context, d Distributor, namespace string, instance InstanceID) (int64, error) {
	return d.Distribute(ctx, namespace, DefaultMachineBit, instance)
}
