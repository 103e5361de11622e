package testkit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/ceyewan/idalloc/connector"
)

// NewMySQLContainerConnector 通过 testcontainers 启动 MySQL 并等待可连接
func NewMySQLContainerConnector(t *testing.T) connector.MySQLConnector {
	t.Helper()
	RequireContainers(t)
	ctx := context.Background()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("idalloc"),
		mysql.WithUsername("idalloc"),
		mysql.WithPassword("idalloc"),
	)
	require.NoError(t, err, "failed to start mysql container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	conn, err := connector.NewMySQL(&connector.MySQLConfig{
		Name:     "test-mysql",
		Host:     host,
		Port:     port,
		Username: "idalloc",
		Password: "idalloc",
		Database: "idalloc",
	}, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create mysql connector")

	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	for {
		if err = conn.Connect(waitCtx); err == nil {
			break
		}
		select {
		case <-waitCtx.Done():
			require.NoError(t, err, "timeout waiting for mysql")
		case <-time.After(2 * time.Second):
		}
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
