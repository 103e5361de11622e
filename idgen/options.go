package idgen

import (
	"github.com/benbjohnson/clock"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	clock  clock.Clock
}

// WithLogger 设置 Logger，组件日志带 "idgen" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("idgen")
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

// WithClock 替换时钟，用于号段过期判断、预取定时与 Snowflake 时间戳
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
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
