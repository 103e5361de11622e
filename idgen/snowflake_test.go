package idgen

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/idalloc/machine"
	"github.com/ceyewan/idalloc/testkit"
)

func newSnowflake(t *testing.T, machines machine.Distributor, cfg *SnowflakeConfig, opts ...Option) *Snowflake {
	t.Helper()
	opts = append(opts, WithLogger(testkit.NewLogger()))
	sf, err := NewSnowflake(t.Context(), cfg, machines, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sf.Close(context.Background()) })
	return sf
}

func TestSnowflake_Next_Unit(t *testing.T) {
	sf := newSnowflake(t, machine.NewMemory(), &SnowflakeConfig{Namespace: "order", Instance: "a"})
	assert.Equal(t, int64(0), sf.MachineID())
	assert.Equal(t, machine.InstanceID("a"), sf.Instance())

	var last int64
	for range 1000 {
		id, err := sf.Next(t.Context())
		require.NoError(t, err)
		require.Greater(t, id, last)
		last = id
	}

	state := sf.Parse(last)
	assert.Equal(t, sf.MachineID(), state.MachineID)
	assert.WithinDuration(t, time.Now(), state.Timestamp, time.Second)
}

func TestSnowflake_Uniqueness_Unit(t *testing.T) {
	sf := newSnowflake(t, machine.NewMemory(), &SnowflakeConfig{Namespace: "order", SequenceBit: 4})

	// 4 位序列号很快溢出，覆盖等待下一毫秒的路径
	seen := make(map[int64]struct{}, 20000)
	for range 20000 {
		id, err := sf.Next(t.Context())
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
}

func TestSnowflake_MachineBinding_Unit(t *testing.T) {
	machines := machine.NewMemory()
	ctx := t.Context()
	cfg := func(inst machine.InstanceID) *SnowflakeConfig {
		return &SnowflakeConfig{Namespace: "bind", Instance: inst, MachineBit: 1}
	}

	a, err := NewSnowflake(ctx, cfg("a"), machines)
	require.NoError(t, err)
	b := newSnowflake(t, machines, cfg("b"))
	assert.NotEqual(t, a.MachineID(), b.MachineID())

	_, err = NewSnowflake(ctx, cfg("c"), machines)
	assert.ErrorIs(t, err, machine.ErrMachineIDOverflow)

	require.NoError(t, a.Close(ctx))
	require.NoError(t, a.Close(ctx))
	_, err = a.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	c := newSnowflake(t, machines, cfg("c"))
	assert.Equal(t, a.MachineID(), c.MachineID(), "reverted id is reused")
}

func TestSnowflake_ClockBackwards_Unit(t *testing.T) {
	mock := clock.NewMock()
	base := time.Now()
	mock.Set(base)
	sf := newSnowflake(t, machine.NewMemory(), &SnowflakeConfig{Namespace: "clock"}, WithClock(mock))

	first, err := sf.Next(t.Context())
	require.NoError(t, err)

	t.Run("small drift reuses last millisecond", func(t *testing.T) {
		mock.Set(base.Add(-2 * time.Millisecond))
		id, err := sf.Next(t.Context())
		require.NoError(t, err)
		assert.Greater(t, id, first)
		assert.Equal(t, sf.Parse(first).Timestamp, sf.Parse(id).Timestamp)
	})

	t.Run("large drift is rejected", func(t *testing.T) {
		mock.Set(base.Add(-2 * time.Second))
		_, err := sf.Next(t.Context())
		assert.ErrorIs(t, err, ErrClockBackwards)
	})

	t.Run("recovers once the clock catches up", func(t *testing.T) {
		mock.Set(base.Add(time.Millisecond))
		id, err := sf.Next(t.Context())
		require.NoError(t, err)
		assert.Greater(t, id, first)
	})
}

func TestSnowflakeConfig_Unit(t *testing.T) {
	machines := machine.NewMemory()
	tests := []struct {
		name string
		cfg  *SnowflakeConfig
		want error
	}{
		{name: "nil config", want: ErrConfigNil},
		{name: "missing namespace", cfg: &SnowflakeConfig{}, want: ErrInvalidInput},
		{name: "machine bit out of range", cfg: &SnowflakeConfig{Namespace: "x", MachineBit: 32}, want: ErrInvalidInput},
		{name: "too many bits", cfg: &SnowflakeConfig{Namespace: "x", MachineBit: 20, SequenceBit: 12}, want: ErrInvalidInput},
		{name: "epoch in future", cfg: &SnowflakeConfig{Namespace: "x", Epoch: time.Now().Add(time.Hour)}, want: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSnowflake(t.Context(), tt.cfg, machines)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := NewSnowflake(t.Context(), &SnowflakeConfig{Namespace: "x"}, nil)
	assert.ErrorIs(t, err, ErrDistributorNil)
}

func TestSnowflake_CloseRetriesRevert_Unit(t *testing.T) {
	machines := &flakyMachines{Distributor: machine.NewMemory()}
	machines.failures.Store(1)
	ctx := t.Context()
	cfg := func(inst machine.InstanceID) *SnowflakeConfig {
		return &SnowflakeConfig{Namespace: "retry", Instance: inst, MachineBit: 1}
	}

	a, err := NewSnowflake(ctx, cfg("a"), machines)
	require.NoError(t, err)
	newSnowflake(t, machines, cfg("b"))

	assert.ErrorIs(t, a.Close(ctx), errRevertDown)
	_, err = a.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed, "generation stops even when revert fails")

	_, err = NewSnowflake(ctx, cfg("c"), machines)
	assert.ErrorIs(t, err, machine.ErrMachineIDOverflow, "binding is still held")

	require.NoError(t, a.Close(ctx))
	require.NoError(t, a.Close(ctx))

	c := newSnowflake(t, machines, cfg("c"))
	assert.Equal(t, a.MachineID(), c.MachineID())
}

func TestSnowflake_MachineIDLost_Unit(t *testing.T) {
	machines := &flakyMachines{Distributor: machine.NewMemory(), lost: make(chan struct{})}
	sf := newSnowflake(t, machines, &SnowflakeConfig{Namespace: "lost", Instance: "a"})
	ctx := t.Context()

	_, err := sf.Next(ctx)
	require.NoError(t, err)

	close(machines.lost)
	for range 2 {
		_, err = sf.Next(ctx)
		assert.ErrorIs(t, err, ErrMachineIDLost)
	}
}

func TestSnowflake_SequenceExhaustedWaits_Unit(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Now())
	sf := newSnowflake(t, machine.NewMemory(), &SnowflakeConfig{Namespace: "seq", SequenceBit: 1}, WithClock(mock))

	_, err := sf.Next(t.Context())
	require.NoError(t, err)
	last, err := sf.Next(t.Context())
	require.NoError(t, err)
	require.Equal(t, int64(1), sf.Parse(last).Sequence)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err = sf.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "waits for the next millisecond instead of spinning")

	mock.Add(time.Millisecond)
	id, err := sf.Next(t.Context())
	require.NoError(t, err)
	assert.Greater(t, id, last)
	assert.Equal(t, int64(0), sf.Parse(id).Sequence)
}

func TestSnowflake_TimestampOverflow_Unit(t *testing.T) {
	mock := clock.NewMock()
	now := time.Now()
	mock.Set(now.Add(-time.Millisecond))
	epoch := now.Add(-time.Duration(1<<timestampBit) * time.Millisecond)
	sf := newSnowflake(t, machine.NewMemory(), &SnowflakeConfig{Namespace: "ts", Epoch: epoch}, WithClock(mock))

	_, err := sf.Next(t.Context())
	require.NoError(t, err, "last representable millisecond")

	mock.Set(now)
	_, err = sf.Next(t.Context())
	assert.ErrorIs(t, err, ErrTimestampOverflow)
}
