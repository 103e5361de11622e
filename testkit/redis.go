package testkit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/ceyewan/idalloc/connector"
)

// NewMiniRedisConnector 启动进程内 miniredis 并返回已连接的连接器
//
// 返回的 *miniredis.Miniredis 可用于检查数据或模拟故障（Close/SetError）。
func NewMiniRedisConnector(t *testing.T) (connector.RedisConnector, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	conn := newRedisConnector(t, &connector.RedisConfig{Name: "test-miniredis", Addr: mr.Addr()})
	return conn, mr
}

// NewRedisContainerConnector 通过 testcontainers 启动 Redis
func NewRedisContainerConnector(t *testing.T) connector.RedisConnector {
	t.Helper()
	RequireContainers(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return newRedisConnector(t, &connector.RedisConfig{
		Name: "test-redis",
		Addr: host + ":" + port.Port(),
	})
}

func newRedisConnector(t *testing.T, cfg *connector.RedisConfig) connector.RedisConnector {
	t.Helper()
	conn, err := connector.NewRedis(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to redis")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
