package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tcetcd "github.com/testcontainers/testcontainers-go/modules/etcd"

	"github.com/ceyewan/idalloc/connector"
)

// NewEtcdContainerConnector 通过 testcontainers 启动单节点 Etcd
func NewEtcdContainerConnector(t *testing.T) connector.EtcdConnector {
	t.Helper()
	RequireContainers(t)
	ctx := context.Background()

	container, err := tcetcd.Run(ctx, "gcr.io/etcd-development/etcd:v3.5.17")
	require.NoError(t, err, "failed to start etcd container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.ClientEndpoint(ctx)
	require.NoError(t, err)

	conn, err := connector.NewEtcd(&connector.EtcdConfig{
		Name:      "test-etcd",
		Endpoints: []string{endpoint},
	}, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create etcd connector")
	require.NoError(t, conn.Connect(ctx), "failed to connect to etcd")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
