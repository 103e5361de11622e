package breaker

import (
	"context"
	"errors"
	"sync"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/metrics"
)

type circuitBreaker struct {
	cfg      *Config
	logger   clog.Logger
	fallback FallbackFunc

	stateChanges metrics.Counter
	rejects      metrics.Counter

	breakers sync.Map // map[string]*gobreaker.CircuitBreaker[any]
}

func newBreaker(cfg *Config, o *options) (*circuitBreaker, error) {
	cb := &circuitBreaker{cfg: cfg, logger: o.logger, fallback: o.fallback}

	var err error
	if cb.stateChanges, err = o.meter.Counter(MetricStateChanges, "Circuit breaker state transitions"); err != nil {
		return nil, err
	}
	if cb.rejects, err = o.meter.Counter(MetricRejects, "Calls rejected by an open circuit breaker"); err != nil {
		return nil, err
	}
	return cb, nil
}

func (cb *circuitBreaker) Execute(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}

	result, err := cb.get(key).Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		cb.rejects.Inc(ctx, metrics.L(LabelKey, key))
		cb.logger.WarnContext(ctx, "circuit breaker rejected call", clog.String("key", key), clog.Error(err))
		if cb.fallback != nil {
			return cb.fallback(ctx, key, ErrOpenState)
		}
		return nil, ErrOpenState
	}
	return result, err
}

func (cb *circuitBreaker) State(key string) (State, error) {
	if key == "" {
		return StateClosed, ErrKeyEmpty
	}
	v, ok := cb.breakers.Load(key)
	if !ok {
		return StateClosed, nil
	}
	return fromGobreaker(v.(*gobreaker.CircuitBreaker[any]).State()), nil
}

func (cb *circuitBreaker) get(key string) *gobreaker.CircuitBreaker[any] {
	if v, ok := cb.breakers.Load(key); ok {
		return v.(*gobreaker.CircuitBreaker[any])
	}

	b := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:          key,
		MaxRequests:   cb.cfg.MaxRequests,
		Interval:      cb.cfg.Interval,
		Timeout:       cb.cfg.Timeout,
		ReadyToTrip:   cb.readyToTrip,
		IsSuccessful:  isSuccessful,
		OnStateChange: cb.onStateChange,
	})
	actual, _ := cb.breakers.LoadOrStore(key, b)
	return actual.(*gobreaker.CircuitBreaker[any])
}

func (cb *circuitBreaker) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < cb.cfg.MinimumRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= cb.cfg.FailureRatio
}

// isSuccessful 调用方取消不算后端故障
func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func (cb *circuitBreaker) onStateChange(name string, from, to gobreaker.State) {
	cb.stateChanges.Inc(context.Background(),
		metrics.L(LabelKey, name),
		metrics.L(LabelFrom, fromGobreaker(from).String()),
		metrics.L(LabelTo, fromGobreaker(to).String()))
	cb.logger.Warn("circuit breaker state changed",
		clog.String("key", name),
		clog.String("from", fromGobreaker(from).String()),
		clog.String("to", fromGobreaker(to).String()))
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}
