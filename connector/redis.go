package connector

import (
	"context"
	"sync"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/xerrors"
)

type redisConnector struct {
	*base
	cfg    *RedisConfig
	mu     sync.RWMutex
	client *redis.Client
}

// NewRedis 创建 Redis 连接器，不发起网络请求
func NewRedis(cfg *RedisConfig, opts ...Option) (RedisConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	b, err := newBase("redis", cfg.Name, o)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})
	if o.tracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, xerrors.Wrapf(err, "redis connector[%s]: instrument tracing", cfg.Name)
		}
	}

	return &redisConnector{base: b, cfg: cfg, client: client}, nil
}

func (c *redisConnector) Connect(ctx context.Context) error {
	client := c.GetClient()
	if client == nil {
		return xerrors.Wrapf(ErrAlreadyClosed, "redis connector[%s]", c.name)
	}

	err := client.Ping(ctx).Err()
	c.recordConnect(ctx, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "connect redis failed", clog.String("addr", c.cfg.Addr), clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "redis connector[%s]: %v", c.name, err)
	}
	c.logger.InfoContext(ctx, "redis connected", clog.String("addr", c.cfg.Addr))
	return nil
}

func (c *redisConnector) Close() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	c.setHealthy(context.Background(), false)
	if err := client.Close(); err != nil {
		c.logger.Error("close redis failed", clog.Error(err))
		return err
	}
	c.logger.Info("redis closed")
	return nil
}

func (c *redisConnector) HealthCheck(ctx context.Context) error {
	client := c.GetClient()
	if client == nil {
		c.setHealthy(ctx, false)
		return xerrors.Wrapf(ErrClientNil, "redis connector[%s]", c.name)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		c.setHealthy(ctx, false)
		c.logger.WarnContext(ctx, "redis health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "redis connector[%s]: %v", c.name, err)
	}
	c.setHealthy(ctx, true)
	return nil
}

func (c *redisConnector) GetClient() *redis.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
