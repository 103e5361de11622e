// Package connector 管理 idalloc 后端存储的连接：Redis、Etcd、MySQL、SQLite。
//
// 约定：
//   - NewXXX 只校验配置并创建客户端，Connect 才做连通性检查
//   - Connect 幂等，可重复调用
//   - 谁创建谁 Close，号段分发器、机器号分配器只借用连接，不负责关闭
//
// 基本使用：
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"},
//		connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//
//	dist, err := segment.New(&segment.Config{Driver: "redis", Namespace: "order"},
//		segment.WithRedisConnector(conn))
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gorm.io/gorm"
)

// Connector 连接器通用行为，所有方法并发安全
type Connector interface {
	// Connect 检查连通性，幂等
	Connect(ctx context.Context) error
	// Close 释放底层连接，幂等
	Close() error
	// HealthCheck 发起一次探测并更新 IsHealthy 的缓存值
	HealthCheck(ctx context.Context) error
	// IsHealthy 返回最近一次探测结果
	IsHealthy() bool
	// Name 连接器实例名，用于日志与指标
	Name() string
}

// TypedConnector 提供类型化的客户端
type TypedConnector[T any] interface {
	Connector
	// GetClient 返回底层客户端，Close 之后可能为 nil
	GetClient() T
}

// RedisConnector 号段 INCRBY 与机器号哈希表使用
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// EtcdConnector 号段 CAS 与机器号租约使用
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}

// MySQLConnector 号段计数表使用
type MySQLConnector interface {
	TypedConnector[*gorm.DB]
}

// SQLiteConnector 单机部署与测试使用
type SQLiteConnector interface {
	TypedConnector[*gorm.DB]
}
