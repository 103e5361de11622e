package idgen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/ceyewan/idalloc/machine"
	"github.com/ceyewan/idalloc/segment"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingDistributor 统计后端往返次数
type countingDistributor struct {
	segment.Distributor
	segments atomic.Int64
	chains   atomic.Int64
}

func (d *countingDistributor) NextSegment(ctx context.Context, ttl time.Duration) (*segment.Segment, error) {
	d.segments.Add(1)
	return d.Distributor.NextSegment(ctx, ttl)
}

func (d *countingDistributor) NextChainN(ctx context.Context, previous *segment.Chain, n int, ttl time.Duration) (*segment.Chain, error) {
	d.chains.Add(1)
	return d.Distributor.NextChainN(ctx, previous, n, ttl)
}

// failingDistributor 所有取段操作都失败
type failingDistributor struct {
	segment.Distributor
	err error
}

func (d failingDistributor) NextSegment(context.Context, time.Duration) (*segment.Segment, error) {
	return nil, d.err
}

func (d failingDistributor) NextChainN(context.Context, *segment.Chain, int, time.Duration) (*segment.Chain, error) {
	return nil, d.err
}

// gatedDistributor NextSegment 阻塞到 release 关闭，像真实后端一样响应 ctx 取消
type gatedDistributor struct {
	segment.Distributor
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedDistributor(step int64) *gatedDistributor {
	return &gatedDistributor{
		Distributor: segment.NewAtomic(step),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (d *gatedDistributor) NextSegment(ctx context.Context, ttl time.Duration) (*segment.Segment, error) {
	d.once.Do(func() { close(d.entered) })
	select {
	case <-d.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return d.Distributor.NextSegment(ctx, ttl)
}

var errRevertDown = errors.New("store down")

// flakyMachines 前 failures 次 Revert 失败，lost 非空时作为 Lost 的返回值
type flakyMachines struct {
	machine.Distributor
	failures atomic.Int64
	lost     chan struct{}
}

func (d *flakyMachines) Revert(ctx context.Context, namespace string, instance machine.InstanceID) error {
	if d.failures.Add(-1) >= 0 {
		return errRevertDown
	}
	return d.Distributor.Revert(ctx, namespace, instance)
}

func (d *flakyMachines) Lost(namespace string, instance machine.InstanceID) <-chan struct{} {
	if d.lost != nil {
		return d.lost
	}
	return d.Distributor.Lost(namespace, instance)
}
