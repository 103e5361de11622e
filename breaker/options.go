package breaker

import (
	"context"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/metrics"
)

// Option 熔断器选项
type Option func(*options)

// FallbackFunc 熔断打开时的降级逻辑，err 为 ErrOpenState
type FallbackFunc func(ctx context.Context, key string, err error) (any, error)

type options struct {
	logger   clog.Logger
	meter    metrics.Meter
	fallback FallbackFunc
}

// WithLogger 注入日志记录器，命名空间追加 "breaker"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 注入指标
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithFallback 设置降级函数
func WithFallback(fn FallbackFunc) Option {
	return func(o *options) {
		o.fallback = fn
	}
}

func applyOptions(opts []Option) *options {
	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
