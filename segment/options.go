package segment

import (
	"github.com/benbjohnson/clock"
	"gorm.io/gorm"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/connector"
	"github.com/ceyewan/idalloc/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	clock  clock.Clock

	redis connector.RedisConnector
	etcd  connector.EtcdConnector
	gorm  connector.TypedConnector[*gorm.DB]
}

// WithLogger 设置 Logger，组件日志带 "segment" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("segment")
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

// WithClock 替换时钟，号段的获取时间与过期判断都使用它
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
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

// WithGormConnector Driver 为 gorm 时必须提供，MySQL 与 SQLite 连接器均可
func WithGormConnector(conn connector.TypedConnector[*gorm.DB]) Option {
	return func(o *options) {
		o.gorm = conn
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
