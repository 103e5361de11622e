// Package testkit 提供 idalloc 测试共用的依赖构造：日志、指标、各后端连接器。
//
// 后端分两档：
//   - 进程内：miniredis、SQLite 内存库，始终可用
//   - 容器：Redis/Etcd/MySQL 通过 testcontainers 启动，-short 或无 Docker 时跳过
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/metrics"
)

// Kit 通用测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回默认依赖，Ctx 随测试结束取消
func NewKit(t *testing.T) *Kit {
	return &Kit{
		Ctx:    t.Context(),
		Logger: NewLogger(),
		Meter:  NewMeter(),
	}
}

// NewLogger 返回 debug 级别、console 格式、输出到 stderr 的 Logger
func NewLogger() clog.Logger {
	logger, err := clog.New(clog.NewDevDefaultConfig())
	if err != nil {
		return clog.Discard()
	}
	return logger.WithNamespace("test")
}

// NewMeter 返回不导出的 Meter
func NewMeter() metrics.Meter {
	return metrics.Discard()
}

// NewContext 返回带超时的上下文
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(t.Context(), timeout)
}

// NewID 返回 8 位随机串，用作命名空间或 key 后缀避免测试间冲突
func NewID() string {
	return uuid.New().String()[0:8]
}

// RequireContainers 在 -short 或 Docker 不可用时跳过当前测试
func RequireContainers(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}
