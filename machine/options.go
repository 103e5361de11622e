package machine

import (
	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/connector"
	"github.com/ceyewan/idalloc/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	redis  connector.RedisConnector
	etcd   connector.EtcdConnector
}

// WithLogger 设置 Logger，组件日志带 "machine" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("machine")
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithRedisConnector Driver 为 redis 时必须提供
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redis = conn
	}
}

// WithEtcdConnector Driver 为 etcd 时必须提供
func WithEtcdConnector(conn connector.EtcdConnector) Option {
	return func(o *options) {
		o.etcd = conn
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
