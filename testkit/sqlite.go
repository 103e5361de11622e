package testkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/idalloc/connector"
)

// NewSQLiteConnector 返回独立的 SQLite 内存库连接器
//
// 每次调用使用不同的库名，测试之间互不可见。
func NewSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	t.Helper()
	return newSQLiteConnector(t, &connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: "file:" + NewID() + "?mode=memory&cache=shared",
	})
}

// NewFileSQLiteConnector 返回落盘在 t.TempDir() 的 SQLite 连接器
func NewFileSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	t.Helper()
	return newSQLiteConnector(t, &connector.SQLiteConfig{
		Name: "test-sqlite-file",
		Path: filepath.Join(t.TempDir(), "idalloc.db"),
	})
}

func newSQLiteConnector(t *testing.T, cfg *connector.SQLiteConfig) connector.SQLiteConnector {
	t.Helper()
	conn, err := connector.NewSQLite(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
