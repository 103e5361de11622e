package connector

import (
	"context"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/xerrors"
)

// healthKey 探测用的 key，不存在也视为连通
const healthKey = "idalloc/health-check"

type etcdConnector struct {
	*base
	cfg    *EtcdConfig
	mu     sync.RWMutex
	client *clientv3.Client
}

// NewEtcd 创建 Etcd 连接器
//
// clientv3.New 不会阻塞等待连接建立，真正的连通性在 Connect 时检查。
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	b, err := newBase("etcd", cfg.Name, o)
	if err != nil {
		return nil, err
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:            cfg.Endpoints,
		Username:             cfg.Username,
		Password:             cfg.Password,
		DialTimeout:          cfg.DialTimeout,
		DialKeepAliveTime:    cfg.KeepAliveTime,
		DialKeepAliveTimeout: cfg.KeepAliveTimeout,
	})
	if err != nil {
		return nil, xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", cfg.Name, err)
	}

	return &etcdConnector{base: b, cfg: cfg, client: client}, nil
}

func (c *etcdConnector) Connect(ctx context.Context) error {
	err := c.probe(ctx)
	c.recordConnect(ctx, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "connect etcd failed", clog.Any("endpoints", c.cfg.Endpoints), clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", c.name, err)
	}
	c.logger.InfoContext(ctx, "etcd connected", clog.Any("endpoints", c.cfg.Endpoints))
	return nil
}

func (c *etcdConnector) probe(ctx context.Context) error {
	client := c.GetClient()
	if client == nil {
		return ErrClientNil
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	_, err := client.Get(ctx, healthKey)
	return err
}

func (c *etcdConnector) Close() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	c.setHealthy(context.Background(), false)
	if err := client.Close(); err != nil {
		c.logger.Error("close etcd failed", clog.Error(err))
		return err
	}
	c.logger.Info("etcd closed")
	return nil
}

func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	if err := c.probe(ctx); err != nil {
		c.setHealthy(ctx, false)
		c.logger.WarnContext(ctx, "etcd health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "etcd connector[%s]: %v", c.name, err)
	}
	c.setHealthy(ctx, true)
	return nil
}

func (c *etcdConnector) GetClient() *clientv3.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
