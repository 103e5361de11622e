package connector

import (
	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/metrics"
)

type options struct {
	logger  clog.Logger
	meter   metrics.Meter
	tracing bool
}

// Option 连接器选项
type Option func(*options)

// WithLogger 注入日志记录器，命名空间追加 "connector"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
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

// WithTracing 为客户端挂载 OpenTelemetry 追踪（redisotel / otelgorm）
func WithTracing() Option {
	return func(o *options) {
		o.tracing = true
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
