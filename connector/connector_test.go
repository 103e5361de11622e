package connector

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/idalloc/xerrors"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"redis empty addr", (&RedisConfig{}).validate()},
		{"redis negative db", (&RedisConfig{Addr: "x:1", DB: -1}).validate()},
		{"etcd no endpoints", (&EtcdConfig{}).validate()},
		{"mysql no host", (&MySQLConfig{Username: "u", Database: "d"}).validate()},
		{"sqlite no path", (&SQLiteConfig{}).validate()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, ErrConfig)
		})
	}

	mysqlCfg := &MySQLConfig{DSN: "root@tcp(127.0.0.1)/db"}
	require.NoError(t, mysqlCfg.validate())
	assert.Equal(t, 3306, mysqlCfg.Port)
	assert.Equal(t, "default", mysqlCfg.Name)
}

func TestRedisConnector(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	conn, err := NewRedis(&RedisConfig{Name: "test", Addr: mr.Addr()}, WithTracing())
	require.NoError(t, err)
	assert.False(t, conn.IsHealthy())

	require.NoError(t, conn.Connect(ctx))
	assert.True(t, conn.IsHealthy())
	assert.Equal(t, "test", conn.Name())

	require.NoError(t, conn.GetClient().Set(ctx, "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, conn.HealthCheck(ctx))

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.False(t, conn.IsHealthy())
	assert.Nil(t, conn.GetClient())
	assert.True(t, xerrors.Is(conn.HealthCheck(ctx), ErrClientNil))
	assert.True(t, xerrors.Is(conn.Connect(ctx), ErrAlreadyClosed))
}

func TestRedisConnector_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	conn, err := NewRedis(&RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	err = conn.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, conn.IsHealthy())
}

func TestSQLiteConnector(t *testing.T) {
	ctx := context.Background()
	conn, err := NewSQLite(&SQLiteConfig{Path: "file::memory:"}, WithTracing())
	require.NoError(t, err)
	assert.Nil(t, conn.GetClient())
	assert.ErrorIs(t, conn.HealthCheck(ctx), ErrClientNil)

	require.NoError(t, conn.Connect(ctx))
	require.NoError(t, conn.Connect(ctx))
	assert.True(t, conn.IsHealthy())

	var one int
	require.NoError(t, conn.GetClient().Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	require.NoError(t, conn.HealthCheck(ctx))
	require.NoError(t, conn.Close())
	assert.Nil(t, conn.GetClient())
}
