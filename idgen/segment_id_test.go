package idgen

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ceyewan/idalloc/segment"
	"github.com/ceyewan/idalloc/testkit"
	"github.com/ceyewan/idalloc/xerrors"
)

func TestSegmentID_Next_Unit(t *testing.T) {
	gen, err := NewSegmentID(segment.NewAtomic(10), nil, WithLogger(testkit.NewLogger()))
	require.NoError(t, err)

	for want := int64(1); want <= 25; want++ {
		id, err := gen.Next(t.Context())
		require.NoError(t, err)
		require.Equal(t, want, id)
	}
	assert.Equal(t, int64(30), gen.Current().MaxID())
}

func TestSegmentID_Concurrent_Unit(t *testing.T) {
	dist := &countingDistributor{Distributor: segment.NewAtomic(10)}
	gen, err := NewSegmentID(dist, nil)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
	)
	g, ctx := errgroup.WithContext(t.Context())
	for range 8 {
		g.Go(func() error {
			for range 100 {
				id, err := gen.Next(ctx)
				if err != nil {
					return err
				}
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, seen, 800)
	for id := int64(1); id <= 800; id++ {
		assert.Contains(t, seen, id)
	}
	assert.Equal(t, int64(80), dist.segments.Load(), "each segment is fetched exactly once")
}

func TestSegmentID_TTL_Unit(t *testing.T) {
	mock := clock.NewMock()
	dist := segment.NewAtomic(10, segment.WithClock(mock))
	gen, err := NewSegmentID(dist, &SegmentConfig{TTL: time.Minute}, WithClock(mock))
	require.NoError(t, err)

	id, err := gen.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	mock.Add(2 * time.Minute)
	id, err = gen.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(11), id, "expired segment is abandoned")
}

func TestSegmentID_Failure_Unit(t *testing.T) {
	boom := xerrors.WithCode(segment.ErrAllocationFailed, "next_max_id_failed")
	gen, err := NewSegmentID(failingDistributor{Distributor: segment.NewAtomic(10), err: boom}, nil)
	require.NoError(t, err)

	_, err = gen.Next(t.Context())
	assert.ErrorIs(t, err, segment.ErrAllocationFailed)

	_, err = NewSegmentID(nil, nil)
	assert.ErrorIs(t, err, ErrDistributorNil)
}

func TestSegmentID_RefillOutlivesCallerCancel_Unit(t *testing.T) {
	dist := newGatedDistributor(10)
	gen, err := NewSegmentID(dist, nil)
	require.NoError(t, err)

	leaderCtx, cancel := context.WithCancel(t.Context())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := gen.Next(leaderCtx)
		leaderErr <- err
	}()
	<-dist.entered

	type result struct {
		id  int64
		err error
	}
	follower := make(chan result, 1)
	go func() {
		id, err := gen.Next(context.Background())
		follower <- result{id, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(dist.release)
	res := <-follower
	require.NoError(t, res.err, "a live caller is not failed by another caller's cancellation")
	assert.Equal(t, int64(1), res.id)
}
