package segment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// 参考实现使用的命名
const (
	referenceNamespace = "__"
	atomicNamePrefix   = "atomic__"
	mockNamePrefix     = "mock__"
)

// DefaultMockTPS NewMock 未指定 tps 时模拟的吞吐
const DefaultMockTPS = 220000

// memoryStore 进程内计数器，只在单进程内保证不重叠
type memoryStore struct {
	counters sync.Map // key -> *atomic.Int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func (s *memoryStore) IncrBy(_ context.Context, key string, offset, step int64) (int64, error) {
	v, ok := s.counters.Load(key)
	if !ok {
		c := new(atomic.Int64)
		c.Store(offset)
		v, _ = s.counters.LoadOrStore(key, c)
	}
	return v.(*atomic.Int64).Add(step), nil
}

// mockStore 在进程内计数器之前等待 1s/tps，模拟网络后端的延迟
type mockStore struct {
	memoryStore
	wait  time.Duration
	clock clock.Clock
}

func (s *mockStore) IncrBy(ctx context.Context, key string, offset, step int64) (int64, error) {
	t := s.clock.Timer(s.wait)
	select {
	case <-ctx.Done():
		t.Stop()
		return 0, ctx.Err()
	case <-t.C:
	}
	return s.memoryStore.IncrBy(ctx, key, offset, step)
}

// NewAtomic 返回进程内单调计数器实现，命名空间 "__"，名称 "atomic__<uuid>"
//
// step <= 0 时 panic。
func NewAtomic(step int64, opts ...Option) Distributor {
	mustPositiveStep(step)
	o := applyOptions(opts)
	name := atomicNamePrefix + uuid.NewString()
	return mustDistributor(name, step, "atomic", newMemoryStore(), o)
}

// NewMock 返回模拟延迟的实现，每次 NextMaxID 等待 1s/tps，用于压测
//
// tps <= 0 时使用 DefaultMockTPS；step <= 0 时 panic。
func NewMock(step int64, tps int, opts ...Option) Distributor {
	mustPositiveStep(step)
	if tps <= 0 {
		tps = DefaultMockTPS
	}
	o := applyOptions(opts)
	name := mockNamePrefix + uuid.NewString()
	store := &mockStore{wait: time.Second / time.Duration(tps), clock: o.clock}
	return mustDistributor(name, step, "mock", store, o)
}

func mustPositiveStep(step int64) {
	if step <= 0 {
		panic(fmt.Sprintf("segment: step must be positive, got %d", step))
	}
}

func mustDistributor(name string, step int64, driver string, store Store, o *options) Distributor {
	d, err := newDistributor(referenceNamespace, name, step, 0, driver, referenceNamespace+"."+name, store, nil, o)
	if err != nil {
		panic(fmt.Sprintf("segment: %v", err))
	}
	return d
}
