package idgen

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ceyewan/idalloc/segment"
	"github.com/ceyewan/idalloc/testkit"
)

func newChainID(t *testing.T, dist segment.Distributor, cfg *ChainConfig) *SegmentChainID {
	t.Helper()
	gen, err := NewSegmentChainID(dist, cfg, WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	t.Cleanup(gen.Close)
	return gen
}

func TestSegmentChainID_Next_Unit(t *testing.T) {
	gen := newChainID(t, segment.NewAtomic(10), &ChainConfig{SafeDistance: 3, PrefetchInterval: 10 * time.Millisecond})

	var last int64
	for range 200 {
		id, err := gen.Next(t.Context())
		require.NoError(t, err)
		require.Greater(t, id, last)
		last = id
	}
	assert.Greater(t, gen.Head().Version(), int64(0))
}

func TestSegmentChainID_Prefetch_Unit(t *testing.T) {
	dist := &countingDistributor{Distributor: segment.NewAtomic(10)}
	gen := newChainID(t, dist, &ChainConfig{SafeDistance: 5, PrefetchInterval: 10 * time.Millisecond})

	require.Eventually(t, func() bool { return gen.Distance() >= 5 }, time.Second, 5*time.Millisecond)

	before := dist.chains.Load()
	for want := int64(1); want <= 10; want++ {
		id, err := gen.Next(t.Context())
		require.NoError(t, err)
		require.Equal(t, want, id)
	}
	// 只有 root 到首段的一次切换，worker 至多补一段
	assert.LessOrEqual(t, dist.chains.Load(), before+1)

	// 消费掉一整段后 worker 会补齐
	for range 20 {
		_, err := gen.Next(t.Context())
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return gen.Distance() >= 5 }, time.Second, 5*time.Millisecond)
}

func TestSegmentChainID_Concurrent_Unit(t *testing.T) {
	gen := newChainID(t, segment.NewAtomic(50), &ChainConfig{SafeDistance: 2, Batch: 2})

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
	)
	g, ctx := errgroup.WithContext(t.Context())
	for range 8 {
		g.Go(func() error {
			for range 500 {
				id, err := gen.Next(ctx)
				if err != nil {
					return err
				}
				mu.Lock()
				_, dup := seen[id]
				seen[id] = struct{}{}
				mu.Unlock()
				if dup {
					return errors.New("duplicate id")
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, seen, 4000)
}

func TestSegmentChainID_Failure_Unit(t *testing.T) {
	boom := errors.New("store down")
	gen := newChainID(t, failingDistributor{Distributor: segment.NewAtomic(10), err: boom},
		&ChainConfig{PrefetchInterval: 10 * time.Millisecond})

	_, err := gen.Next(t.Context())
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, gen.Distance())
}

func TestSegmentChainID_Close_Unit(t *testing.T) {
	gen, err := NewSegmentChainID(segment.NewAtomic(10), nil)
	require.NoError(t, err)

	_, err = gen.Next(t.Context())
	require.NoError(t, err)

	gen.Close()
	gen.Close()
	_, err = gen.Next(t.Context())
	assert.ErrorIs(t, err, ErrClosed)

	_, err = NewSegmentChainID(nil, nil)
	assert.ErrorIs(t, err, ErrDistributorNil)

	_, err = NewSegmentChainID(segment.NewAtomic(10), &ChainConfig{SafeDistance: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
