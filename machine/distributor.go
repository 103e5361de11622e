package machine

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ceyewan/idalloc/breaker"
	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/metrics"
	"github.com/ceyewan/idalloc/trace"
	"github.com/ceyewan/idalloc/xerrors"
)

// 后端返回的特殊机器号
const (
	// noMachineID 号空间已满
	noMachineID int64 = -1
	// boundOutside 实例已绑定的号超出本次请求的位宽
	boundOutside int64 = -2
)

// store 后端绑定表
//
// 号空间占满通过 noMachineID 返回而不是错误，熔断器只统计后端故障。
type store interface {
	distribute(ctx context.Context, namespace string, machineBit int, instance InstanceID) (int64, error)
	// revert 返回被释放的机器号，未绑定时 released 为 false
	revert(ctx context.Context, namespace string, instance InstanceID) (id int64, released bool, err error)
	close(ctx context.Context) error
	// lost 绑定被动失效时关闭的通道，不会失效的后端返回 nil
	lost(namespace string, instance InstanceID) <-chan struct{}
}

// New 按 cfg.Driver 创建机器号分配器
func New(cfg *Config, opts ...Option) (Distributor, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	var s store
	switch c.Driver {
	case DriverRedis:
		if o.redis == nil {
			return nil, ErrConnectorNil
		}
		s = newRedisStore(o.redis, c.KeyPrefix)
	case DriverEtcd:
		if o.etcd == nil {
			return nil, ErrConnectorNil
		}
		s = newEtcdStore(o.etcd, c.KeyPrefix, c.LeaseTTL, o.logger)
	default:
		s = newMemoryStore()
	}

	var br breaker.Breaker
	if c.Breaker != nil {
		var err error
		if br, err = breaker.New(c.Breaker, breaker.WithLogger(o.logger), breaker.WithMeter(o.meter)); err != nil {
			return nil, err
		}
	}

	d, err := newDistributor(c.Driver, s, br, o)
	if err != nil {
		return nil, err
	}
	o.logger.Info("machine distributor created", clog.String("driver", c.Driver), clog.Bool("breaker", br != nil))
	return d, nil
}

// NewMemory 返回进程内实现
func NewMemory(opts ...Option) Distributor {
	d, err := newDistributor(DriverMemory, newMemoryStore(), nil, applyOptions(opts))
	if err != nil {
		panic(fmt.Sprintf("machine: %v", err))
	}
	return d
}

type distributor struct {
	driver  string
	store   store
	breaker breaker.Breaker
	logger  clog.Logger
	closed  atomic.Bool

	distributes metrics.Counter
	reverts     metrics.Counter
}

func newDistributor(driver string, s store, br breaker.Breaker, o *options) (*distributor, error) {
	distributes, err := o.meter.Counter(MetricDistributeTotal, "机器号分配次数")
	if err != nil {
		return nil, err
	}
	reverts, err := o.meter.Counter(MetricRevertTotal, "机器号释放次数")
	if err != nil {
		return nil, err
	}
	return &distributor{
		driver:      driver,
		store:       s,
		breaker:     br,
		logger:      o.logger,
		distributes: distributes,
		reverts:     reverts,
	}, nil
}

func (d *distributor) Distribute(ctx context.Context, namespace string, machineBit int, instance InstanceID) (id int64, err error) {
	if err := validate(namespace, instance); err != nil {
		return 0, err
	}
	if machineBit < MinMachineBit || machineBit > MaxMachineBit {
		return 0, xerrors.WithCode(xerrors.Wrapf(ErrInvalidInput, "machine bit %d", machineBit), "machine_bit_out_of_range")
	}
	if d.closed.Load() {
		return 0, ErrClosed
	}

	ctx, span := trace.Start(ctx, trace.SpanMachineDistribute,
		trace.Namespace(namespace), trace.Driver(d.driver), trace.MachineBit(machineBit), trace.InstanceID(string(instance)))
	defer func() {
		d.distributes.Inc(ctx, metrics.L(metrics.LabelNamespace, namespace), metrics.Outcome(err))
		if err == nil {
			span.SetAttributes(trace.MachineID(id))
		}
		trace.End(span, err)
	}()

	id, err = d.call(ctx, namespace, func(ctx context.Context) (int64, error) {
		return d.store.distribute(ctx, namespace, machineBit, instance)
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "distribute machine id failed",
			clog.String("ns", namespace), clog.String("instance", string(instance)), clog.Error(err))
		return 0, xerrors.WithCode(fmt.Errorf("%w: %s: %w", ErrStoreFailed, namespace, err), codeStoreFailed)
	}

	switch id {
	case noMachineID:
		d.logger.ErrorContext(ctx, "machine id space exhausted",
			clog.String("ns", namespace), clog.Int("machine_bit", machineBit), clog.Int64("total", TotalMachineIDs(machineBit)))
		return 0, xerrors.WithCode(
			xerrors.Wrapf(ErrMachineIDOverflow, "namespace %s, %d ids in use", namespace, TotalMachineIDs(machineBit)),
			codeMachineIDOverflow)
	case boundOutside:
		return 0, xerrors.WithCode(
			xerrors.Wrapf(ErrInvalidInput, "instance %s already bound outside %d bits", instance, machineBit),
			codeMachineBitShrunk)
	}

	d.logger.InfoContext(ctx, "machine id distributed",
		clog.String("ns", namespace), clog.String("instance", string(instance)), clog.Int64("machine_id", id))
	return id, nil
}

func (d *distributor) Revert(ctx context.Context, namespace string, instance InstanceID) (err error) {
	if err := validate(namespace, instance); err != nil {
		return err
	}
	if d.closed.Load() {
		return ErrClosed
	}

	ctx, span := trace.Start(ctx, trace.SpanMachineRevert,
		trace.Namespace(namespace), trace.Driver(d.driver), trace.InstanceID(string(instance)))
	defer func() { trace.End(span, err) }()

	var released bool
	id, err := d.call(ctx, namespace, func(ctx context.Context) (int64, error) {
		id, ok, err := d.store.revert(ctx, namespace, instance)
		released = ok
		return id, err
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "revert machine id failed",
			clog.String("ns", namespace), clog.String("instance", string(instance)), clog.Error(err))
		return xerrors.WithCode(fmt.Errorf("%w: %s: %w", ErrStoreFailed, namespace, err), codeStoreFailed)
	}
	if !released {
		d.logger.DebugContext(ctx, "instance not bound, nothing to revert",
			clog.String("ns", namespace), clog.String("instance", string(instance)))
		return nil
	}

	d.reverts.Inc(ctx, metrics.L(metrics.LabelNamespace, namespace))
	span.SetAttributes(trace.MachineID(id))
	d.logger.InfoContext(ctx, "machine id reverted",
		clog.String("ns", namespace), clog.String("instance", string(instance)), clog.Int64("machine_id", id))
	return nil
}

func (d *distributor) Close(ctx context.Context) error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.store.close(ctx)
}

func (d *distributor) Lost(namespace string, instance InstanceID) <-chan struct{} {
	return d.store.lost(namespace, instance)
}

func (d *distributor) call(ctx context.Context, namespace string, fn func(ctx context.Context) (int64, error)) (int64, error) {
	if d.breaker == nil {
		return fn(ctx)
	}
	return breaker.Call(ctx, d.breaker, "machine:"+namespace, fn)
}

func validate(namespace string, instance InstanceID) error {
	if strings.TrimSpace(namespace) == "" {
		return xerrors.WithCode(ErrInvalidInput, "namespace_required")
	}
	if strings.TrimSpace(string(instance)) == "" {
		return xerrors.WithCode(ErrInvalidInput, "instance_required")
	}
	return nil
}
