package machine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ceyewan/idalloc/breaker"
	"github.com/ceyewan/idalloc/testkit"
	"github.com/ceyewan/idalloc/xerrors"
)

func TestBitArithmetic(t *testing.T) {
	tests := []struct {
		bits  int
		max   int64
		total int64
	}{
		{bits: 1, max: 1, total: 2},
		{bits: 2, max: 3, total: 4},
		{bits: 10, max: 1023, total: 1024},
		{bits: 31, max: 1<<31 - 1, total: 1 << 31},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("bits=%d", tt.bits), func(t *testing.T) {
			assert.Equal(t, tt.max, MaxMachineID(tt.bits))
			assert.Equal(t, tt.total, TotalMachineIDs(tt.bits))
		})
	}
}

func TestNewInstanceID(t *testing.T) {
	a, b := NewInstanceID(), NewInstanceID()
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^.+:\d+:[0-9a-f]{8}$`, a.String())
}

// exerciseDistributor bits=2 的号空间：分配、溢出、释放后复用、幂等
func exerciseDistributor(t *testing.T, d Distributor) {
	t.Helper()
	ctx := t.Context()
	ns := "test-" + testkit.NewID()

	ids := make(map[int64]InstanceID)
	instances := make([]InstanceID, 4)
	for i := range instances {
		instances[i] = InstanceID(fmt.Sprintf("instance-%d", i))
		id, err := d.Distribute(ctx, ns, 2, instances[i])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, id, int64(0))
		assert.LessOrEqual(t, id, MaxMachineID(2))
		_, dup := ids[id]
		require.False(t, dup, "machine id %d distributed twice", id)
		ids[id] = instances[i]
	}

	t.Run("idempotent for a live instance", func(t *testing.T) {
		for id, inst := range ids {
			again, err := d.Distribute(ctx, ns, 2, inst)
			require.NoError(t, err)
			assert.Equal(t, id, again)
		}
	})

	t.Run("overflow when full", func(t *testing.T) {
		_, err := d.Distribute(ctx, ns, 2, "instance-overflow")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMachineIDOverflow)
		assert.NotErrorIs(t, err, ErrStoreFailed)
		assert.Equal(t, codeMachineIDOverflow, xerrors.GetCode(err))
	})

	t.Run("revert frees an id", func(t *testing.T) {
		freed, err := d.Distribute(ctx, ns, 2, instances[1])
		require.NoError(t, err)
		require.NoError(t, d.Revert(ctx, ns, instances[1]))
		require.NoError(t, d.Revert(ctx, ns, instances[1]), "revert is idempotent")

		id, err := d.Distribute(ctx, ns, 2, "instance-new")
		require.NoError(t, err)
		assert.Equal(t, freed, id)
	})

	t.Run("bit width smaller than binding", func(t *testing.T) {
		for id, inst := range ids {
			if id < 2 || inst == instances[1] {
				continue
			}
			_, err := d.Distribute(ctx, ns, 1, inst)
			assert.ErrorIs(t, err, ErrInvalidInput)
			return
		}
	})

	t.Run("namespaces are independent", func(t *testing.T) {
		id, err := d.Distribute(ctx, ns+"-other", 2, instances[0])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, id, int64(0))
	})

	t.Run("revert unknown instance", func(t *testing.T) {
		assert.NoError(t, d.Revert(ctx, "never-used-"+testkit.NewID(), "ghost"))
	})
}

func exerciseConcurrent(t *testing.T, d Distributor) {
	t.Helper()
	ns := "concurrent-" + testkit.NewID()

	var (
		mu   sync.Mutex
		seen = make(map[int64]InstanceID)
	)
	g, ctx := errgroup.WithContext(t.Context())
	for i := range 16 {
		g.Go(func() error {
			inst := InstanceID(fmt.Sprintf("worker-%d", i))
			id, err := d.Distribute(ctx, ns, 4, inst)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if other, ok := seen[id]; ok {
				return fmt.Errorf("id %d bound to both %s and %s", id, other, inst)
			}
			seen[id] = inst
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, seen, 16)

	_, err := d.Distribute(t.Context(), ns, 4, "worker-extra")
	assert.ErrorIs(t, err, ErrMachineIDOverflow)
}

func TestMemory(t *testing.T) {
	d := NewMemory(WithLogger(testkit.NewLogger()))
	defer func() { _ = d.Close(context.Background()) }()
	exerciseDistributor(t, d)
	exerciseConcurrent(t, d)

	t.Run("lowest free id", func(t *testing.T) {
		ctx := t.Context()
		for i := range 3 {
			id, err := d.Distribute(ctx, "lowest", 3, InstanceID(fmt.Sprint(i)))
			require.NoError(t, err)
			assert.Equal(t, int64(i), id)
		}
		require.NoError(t, d.Revert(ctx, "lowest", "0"))
		id, err := d.Distribute(ctx, "lowest", 3, "3")
		require.NoError(t, err)
		assert.Zero(t, id)
	})
}

func TestDistribute_InvalidInput(t *testing.T) {
	d := NewMemory()
	ctx := t.Context()

	tests := []struct {
		name     string
		ns       string
		bits     int
		instance InstanceID
	}{
		{name: "empty namespace", ns: "", bits: 2, instance: "a"},
		{name: "empty instance", ns: "ns", bits: 2, instance: ""},
		{name: "zero bits", ns: "ns", bits: 0, instance: "a"},
		{name: "too many bits", ns: "ns", bits: 32, instance: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Distribute(ctx, tt.ns, tt.bits, tt.instance)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.NotErrorIs(t, err, ErrMachineIDOverflow)
		})
	}

	assert.ErrorIs(t, d.Revert(ctx, "", "a"), ErrInvalidInput)
}

func TestDistributeDefault(t *testing.T) {
	d := NewMemory()
	id, err := DistributeDefault(t.Context(), d, "default", "a")
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestLost_WithoutLease(t *testing.T) {
	d := NewMemory()
	_, err := d.Distribute(t.Context(), "ns", 2, "a")
	require.NoError(t, err)
	assert.Nil(t, d.Lost("ns", "a"), "memory bindings are never reclaimed")
}

func TestClose(t *testing.T) {
	d := NewMemory()
	require.NoError(t, d.Close(t.Context()))
	require.NoError(t, d.Close(t.Context()))

	_, err := d.Distribute(t.Context(), "ns", 2, "a")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want error
	}{
		{name: "nil config", want: ErrConfigNil},
		{name: "unknown driver", cfg: &Config{Driver: "zk"}, want: ErrInvalidInput},
		{name: "short lease", cfg: &Config{Driver: DriverEtcd, LeaseTTL: 1}, want: ErrInvalidInput},
		{name: "redis without connector", cfg: &Config{Driver: DriverRedis}, want: ErrConnectorNil},
		{name: "etcd without connector", cfg: &Config{Driver: DriverEtcd}, want: ErrConnectorNil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRedis(t *testing.T) {
	conn, mr := testkit.NewMiniRedisConnector(t)
	d, err := New(&Config{Driver: DriverRedis}, WithRedisConnector(conn), WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	exerciseDistributor(t, d)
	exerciseConcurrent(t, d)

	t.Run("hash layout", func(t *testing.T) {
		id, err := d.Distribute(t.Context(), "layout", 2, "inst-a")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(id), mr.HGet("idalloc:machine:{layout}:instances", "inst-a"))
		assert.Equal(t, "inst-a", mr.HGet("idalloc:machine:{layout}:machines", fmt.Sprint(id)))
		assert.Nil(t, d.Lost("layout", "inst-a"))

		require.NoError(t, d.Revert(t.Context(), "layout", "inst-a"))
		assert.Empty(t, mr.HGet("idalloc:machine:{layout}:machines", fmt.Sprint(id)))
		assert.Empty(t, mr.HGet("idalloc:machine:{layout}:instances", "inst-a"))
	})

	t.Run("backend down", func(t *testing.T) {
		mr.SetError("ERR simulated outage")
		defer mr.SetError("")
		_, err := d.Distribute(t.Context(), "down", 2, "inst-a")
		assert.ErrorIs(t, err, ErrStoreFailed)
		assert.NotErrorIs(t, err, ErrMachineIDOverflow)
	})
}

func TestEtcd(t *testing.T) {
	conn := testkit.NewEtcdContainerConnector(t)
	d, err := New(&Config{Driver: DriverEtcd, LeaseTTL: 10 * time.Second}, WithEtcdConnector(conn), WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	exerciseDistributor(t, d)
	exerciseConcurrent(t, d)

	t.Run("close revokes lease", func(t *testing.T) {
		ctx := t.Context()
		d, err := New(&Config{Driver: DriverEtcd}, WithEtcdConnector(conn))
		require.NoError(t, err)
		_, err = d.Distribute(ctx, "lease", 2, "inst-a")
		require.NoError(t, err)

		resp, err := conn.GetClient().Get(ctx, "/idalloc/machine/lease/instance/inst-a")
		require.NoError(t, err)
		require.Len(t, resp.Kvs, 1)
		assert.NotZero(t, resp.Kvs[0].Lease)

		lost := d.Lost("lease", "inst-a")
		require.NotNil(t, lost)
		require.NoError(t, d.Close(ctx))
		resp, err = conn.GetClient().Get(ctx, "/idalloc/machine/lease/", clientv3.WithPrefix())
		require.NoError(t, err)
		assert.Empty(t, resp.Kvs)
		assert.True(t, isClosed(lost), "holders are told the binding is gone")
	})

	t.Run("ids bound under a wider width do not count", func(t *testing.T) {
		ctx := t.Context()
		ns := "wide-" + testkit.NewID()
		_, err := conn.GetClient().Put(ctx, "/idalloc/machine/"+ns+"/machine/5", "wide")
		require.NoError(t, err)

		a, err := d.Distribute(ctx, ns, 1, "inst-a")
		require.NoError(t, err)
		b, err := d.Distribute(ctx, ns, 1, "inst-b")
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{0, 1}, []int64{a, b})
	})

	t.Run("lease revoked out of band", func(t *testing.T) {
		ctx := t.Context()
		d, err := New(&Config{Driver: DriverEtcd, LeaseTTL: 3 * time.Second}, WithEtcdConnector(conn))
		require.NoError(t, err)
		t.Cleanup(func() { _ = d.Close(context.Background()) })

		_, err = d.Distribute(ctx, "revoked", 2, "inst-a")
		require.NoError(t, err)
		lost := d.Lost("revoked", "inst-a")
		require.NotNil(t, lost)
		assert.False(t, isClosed(lost))

		resp, err := conn.GetClient().Get(ctx, "/idalloc/machine/revoked/instance/inst-a")
		require.NoError(t, err)
		require.Len(t, resp.Kvs, 1)
		_, err = conn.GetClient().Revoke(ctx, clientv3.LeaseID(resp.Kvs[0].Lease))
		require.NoError(t, err)

		require.Eventually(t, func() bool { return isClosed(lost) }, 15*time.Second, 50*time.Millisecond)

		// 重新分配使用新租约，新通道未关闭
		_, err = d.Distribute(ctx, "revoked", 2, "inst-a")
		require.NoError(t, err)
		renewed := d.Lost("revoked", "inst-a")
		require.NotNil(t, renewed)
		assert.False(t, isClosed(renewed))
	})
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestBreaker_OverflowIsNotAFailure(t *testing.T) {
	d, err := New(&Config{Breaker: &breaker.Config{MinimumRequests: 2, FailureRatio: 0.5}})
	require.NoError(t, err)
	ctx := t.Context()

	_, err = d.Distribute(ctx, "tiny", 1, "a")
	require.NoError(t, err)
	_, err = d.Distribute(ctx, "tiny", 1, "b")
	require.NoError(t, err)

	for range 5 {
		_, err = d.Distribute(ctx, "tiny", 1, "c")
		assert.ErrorIs(t, err, ErrMachineIDOverflow)
		assert.NotErrorIs(t, err, breaker.ErrOpenState)
	}
}
