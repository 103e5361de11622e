package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func newTestBreaker(t *testing.T, opts ...Option) Breaker {
	t.Helper()
	b, err := New(&Config{
		MaxRequests:     1,
		Timeout:         100 * time.Millisecond,
		FailureRatio:    0.5,
		MinimumRequests: 2,
	}, opts...)
	require.NoError(t, err)
	return b
}

func fail(context.Context) (int64, error) { return 0, errBackend }

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrConfigNil)
}

func TestConfig_Defaults(t *testing.T) {
	c := &Config{}
	c.setDefaults()
	assert.EqualValues(t, 1, c.MaxRequests)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, 0.6, c.FailureRatio)
	assert.EqualValues(t, 10, c.MinimumRequests)
}

func TestCall_Success(t *testing.T) {
	b := newTestBreaker(t)
	v, err := Call(context.Background(), b, "segment:order", func(context.Context) (int64, error) {
		return 200, nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 200, v)

	_, err = Call(context.Background(), b, "", fail)
	assert.ErrorIs(t, err, ErrKeyEmpty)
}

func TestBreaker_OpenAndRecover(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker(t)
	key := "segment:order"

	for range 2 {
		_, err := Call(ctx, b, key, fail)
		assert.ErrorIs(t, err, errBackend)
	}
	state, err := b.State(key)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, state)

	_, err = Call(ctx, b, key, fail)
	assert.ErrorIs(t, err, ErrOpenState)

	other, err := b.State("segment:user")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, other)

	time.Sleep(150 * time.Millisecond)
	v, err := Call(ctx, b, key, func(context.Context) (int64, error) { return 7, nil })
	require.NoError(t, err)
	assert.EqualValues(t, 7, v)

	state, _ = b.State(key)
	assert.Equal(t, StateClosed, state)
}

func TestBreaker_CanceledNotCounted(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker(t)
	for range 5 {
		_, err := Call(ctx, b, "k", func(context.Context) (int64, error) { return 0, context.Canceled })
		assert.ErrorIs(t, err, context.Canceled)
	}
	state, _ := b.State("k")
	assert.Equal(t, StateClosed, state)
}

func TestBreaker_Fallback(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker(t, WithFallback(func(_ context.Context, key string, err error) (any, error) {
		assert.ErrorIs(t, err, ErrOpenState)
		return int64(-1), nil
	}))
	for range 2 {
		_, _ = Call(ctx, b, "k", fail)
	}
	v, err := Call(ctx, b, "k", fail)
	require.NoError(t, err)
	assert.EqualValues(t, -1, v)
}

func TestCall_ResultTypeMismatch(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker(t, WithFallback(func(context.Context, string, error) (any, error) {
		return "degraded", nil
	}))
	for range 2 {
		_, _ = Call(ctx, b, "k", fail)
	}
	v, err := Call(ctx, b, "k", fail)
	assert.ErrorIs(t, err, ErrResultType)
	assert.Zero(t, v)
}
