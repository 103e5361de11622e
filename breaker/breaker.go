// Package breaker 为号段分发器的存储调用提供熔断保护。
//
// 后端（Redis/Etcd/MySQL）持续失败时，熔断器打开并快速返回 ErrOpenState，
// 避免 NextMaxID 在故障期间堆积阻塞的请求；Timeout 之后进入半开状态探测恢复。
//
//	brk, _ := breaker.New(&breaker.Config{FailureRatio: 0.6, MinimumRequests: 10},
//		breaker.WithLogger(logger))
//	maxID, err := breaker.Call(ctx, brk, "segment:order", func(ctx context.Context) (int64, error) {
//		return store.IncrBy(ctx, key, offset, step)
//	})
package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/xerrors"
)

// Breaker 按 key 隔离的熔断器
type Breaker interface {
	// Execute 在 key 对应的熔断器保护下执行 fn
	//
	// 熔断器打开时不执行 fn，返回 ErrOpenState 或 Fallback 的结果。
	Execute(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error)

	// State 返回 key 当前状态，未使用过的 key 视为 StateClosed
	State(key string) (State, error)
}

// Call 是 Execute 的类型化封装
func Call[T any](ctx context.Context, b Breaker, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := b.Execute(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, xerrors.Wrapf(ErrResultType, "key %s: got %T, want %T", key, v, zero)
	}
	return t, nil
}

// State 熔断器状态
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config 熔断器配置
type Config struct {
	// MaxRequests 半开状态允许通过的探测请求数，默认 1
	MaxRequests uint32 `json:"max_requests" yaml:"max_requests" mapstructure:"max_requests"`
	// Interval 闭合状态下清空计数的周期，0 表示不清空
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	// Timeout 打开状态持续时间，默认 30s
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	// FailureRatio 触发熔断的失败率，默认 0.6
	FailureRatio float64 `json:"failure_ratio" yaml:"failure_ratio" mapstructure:"failure_ratio"`
	// MinimumRequests 统计失败率前的最小请求数，默认 10
	MinimumRequests uint32 `json:"minimum_requests" yaml:"minimum_requests" mapstructure:"minimum_requests"`
}

func (c *Config) setDefaults() {
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		c.FailureRatio = 0.6
	}
	if c.MinimumRequests == 0 {
		c.MinimumRequests = 10
	}
}

// New 创建熔断器
func New(cfg *Config, opts ...Option) (Breaker, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	c := *cfg
	c.setDefaults()

	o := applyOptions(opts)
	o.logger.Debug("circuit breaker created",
		clog.Int("max_requests", int(c.MaxRequests)),
		clog.Duration("timeout", c.Timeout),
		clog.Float64("failure_ratio", c.FailureRatio),
		clog.Int("minimum_requests", int(c.MinimumRequests)))

	return newBreaker(&c, o)
}
