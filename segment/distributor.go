package segment

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ceyewan/idalloc/breaker"
	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/metrics"
	"github.com/ceyewan/idalloc/trace"
	"github.com/ceyewan/idalloc/xerrors"
)

// Store 后端计数器
//
// IncrBy 必须原子且持久地把 key 对应的计数器前进 step 并返回新值；
// key 不存在时先以 offset 初始化。对同一 key 的并发调用（包括跨进程）
// 必须得到互不重叠、严格递增的结果，这是整个 ID 空间唯一的串行化点。
type Store interface {
	IncrBy(ctx context.Context, key string, offset, step int64) (int64, error)
}

// Distributor 号段分配器，一个实例对应一个 (namespace, name) 序列
//
// NextMaxID 是唯一需要后端参与的操作，其余方法都由它派生。所有方法并发安全。
type Distributor interface {
	Namespace() string
	Name() string
	// NamespacedName 返回 "<namespace>.<name>"
	NamespacedName() string
	// Step 单段宽度
	Step() int64

	// NextMaxID 前进计数器 step 并返回新上界，调用方独占 (maxID-step, maxID]
	NextMaxID(ctx context.Context, step int64) (int64, error)

	// NextSegment 获取一段宽度为 Step() 的号段
	NextSegment(ctx context.Context, ttl time.Duration) (*Segment, error)

	// NextSegments 一次往返获取 segments*Step() 的区间，本地切成等宽的升序号段
	NextSegments(ctx context.Context, segments int, ttl time.Duration) ([]*Segment, error)

	// NextChain 获取一段并包装为接在 previous 之后的链表节点
	NextChain(ctx context.Context, previous *Chain, ttl time.Duration) (*Chain, error)

	// NextChainN 批量获取 segments 段并串成链表，返回第一个节点
	//
	// 返回的节点尚未挂到 previous.next 上，由调用方决定何时发布。
	NextChainN(ctx context.Context, previous *Chain, segments int, ttl time.Duration) (*Chain, error)
}

// New 按 cfg.Driver 创建分配器
//
//	dist, err := segment.New(&segment.Config{
//		Driver:    segment.DriverRedis,
//		Namespace: "order",
//		Name:      "id",
//	}, segment.WithRedisConnector(redisConn), segment.WithLogger(logger))
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
	store, err := newStore(&c, o)
	if err != nil {
		return nil, err
	}

	var br breaker.Breaker
	if c.Breaker != nil {
		br, err = breaker.New(c.Breaker, breaker.WithLogger(o.logger), breaker.WithMeter(o.meter))
		if err != nil {
			return nil, err
		}
	}

	d, err := newDistributor(c.Namespace, c.Name, c.Step, c.Offset, c.Driver, storeKey(&c), store, br, o)
	if err != nil {
		return nil, err
	}
	o.logger.Info("segment distributor created",
		clog.String("series", d.NamespacedName()),
		clog.String("driver", c.Driver),
		clog.Int64("step", c.Step),
		clog.Int64("offset", c.Offset),
		clog.Bool("breaker", br != nil),
	)
	return d, nil
}

func newStore(c *Config, o *options) (Store, error) {
	switch c.Driver {
	case DriverRedis:
		if o.redis == nil {
			return nil, ErrConnectorNil
		}
		return newRedisStore(o.redis), nil
	case DriverEtcd:
		if o.etcd == nil {
			return nil, ErrConnectorNil
		}
		return newEtcdStore(o.etcd), nil
	case DriverGorm:
		if o.gorm == nil {
			return nil, ErrConnectorNil
		}
		return newGormStore(o.gorm, c.Table)
	default:
		return newMemoryStore(), nil
	}
}

func storeKey(c *Config) string {
	switch c.Driver {
	case DriverRedis:
		return c.KeyPrefix + ":" + c.namespacedName()
	case DriverEtcd:
		return c.KeyPrefix + "/" + c.namespacedName()
	default:
		return c.namespacedName()
	}
}

// distributor 在 Store 之上实现派生操作，并负责熔断、指标、链路与日志
type distributor struct {
	namespace string
	name      string
	step      int64
	offset    int64
	driver    string
	key       string

	store   Store
	breaker breaker.Breaker
	clock   clock.Clock
	logger  clog.Logger

	fetches  metrics.Counter
	duration metrics.Histogram

	// last 本实例已完成调用中的最大上界，用于检测后端回退
	last atomic.Int64
}

func newDistributor(namespace, name string, step, offset int64, driver, key string,
	store Store, br breaker.Breaker, o *options) (*distributor, error) {
	fetches, err := o.meter.Counter(MetricFetchTotal, "号段获取次数")
	if err != nil {
		return nil, err
	}
	duration, err := o.meter.Histogram(MetricFetchDuration, "号段获取耗时",
		metrics.WithUnit("s"), metrics.WithBuckets(fetchBuckets...))
	if err != nil {
		return nil, err
	}
	return &distributor{
		namespace: namespace,
		name:      name,
		step:      step,
		offset:    offset,
		driver:    driver,
		key:       key,
		store:     store,
		breaker:   br,
		clock:     o.clock,
		logger:    o.logger.With(clog.String("series", namespace+"."+name)),
		fetches:   fetches,
		duration:  duration,
	}, nil
}

func (d *distributor) Namespace() string { return d.namespace }

func (d *distributor) Name() string { return d.name }

func (d *distributor) NamespacedName() string { return d.namespace + "." + d.name }

func (d *distributor) Step() int64 { return d.step }

func (d *distributor) NextMaxID(ctx context.Context, step int64) (maxID int64, err error) {
	if step <= 0 {
		return 0, xerrors.WithCode(xerrors.Wrapf(ErrInvalidInput, "step %d", step), codeStepNotPositive)
	}

	ctx, span := trace.Start(ctx, trace.SpanSegmentNextMaxID,
		trace.Namespace(d.NamespacedName()), trace.Driver(d.driver), trace.Step(step))
	start := d.clock.Now()
	defer func() {
		ns := metrics.L(metrics.LabelNamespace, d.NamespacedName())
		d.fetches.Inc(ctx, ns, metrics.Outcome(err))
		d.duration.Record(ctx, d.clock.Since(start).Seconds(), ns)
		if err == nil {
			span.SetAttributes(trace.MaxID(maxID))
		}
		trace.End(span, err)
	}()

	// 发起调用前已完成的分配必须全部低于本次结果，并发中的调用之间不要求顺序
	floor := d.last.Load()
	incr := func(ctx context.Context) (int64, error) {
		return d.store.IncrBy(ctx, d.key, d.offset, step)
	}
	if d.breaker != nil {
		maxID, err = breaker.Call(ctx, d.breaker, d.NamespacedName(), incr)
	} else {
		maxID, err = incr(ctx)
	}
	if err != nil {
		d.logger.ErrorContext(ctx, "next max id failed", clog.Int64("step", step), clog.Error(err))
		return 0, xerrors.WithCode(fmt.Errorf("%w: %s: %w", ErrAllocationFailed, d.NamespacedName(), err), codeNextMaxIDFailed)
	}

	if maxID <= 0 || maxID <= floor {
		d.logger.ErrorContext(ctx, "store returned non-monotonic max id",
			clog.Int64("step", step), clog.Int64("max_id", maxID), clog.Int64("last_max_id", floor))
		return 0, xerrors.WithCode(
			xerrors.Wrapf(ErrAllocationFailed, "%s: max id %d not above %d", d.NamespacedName(), maxID, floor),
			codeNonMonotonic)
	}
	d.advance(maxID)

	d.logger.DebugContext(ctx, "next max id", clog.Int64("step", step), clog.Int64("max_id", maxID))
	return maxID, nil
}

// advance 把 last 推进到 maxID，乱序完成的较小值被忽略
func (d *distributor) advance(maxID int64) {
	for {
		last := d.last.Load()
		if maxID <= last || d.last.CompareAndSwap(last, maxID) {
			return
		}
	}
}

func (d *distributor) NextSegment(ctx context.Context, ttl time.Duration) (*Segment, error) {
	maxID, err := d.NextMaxID(ctx, d.step)
	if err != nil {
		return nil, err
	}
	return NewSegmentAt(maxID, d.step, d.clock.Now(), ttl), nil
}

func (d *distributor) NextSegments(ctx context.Context, segments int, ttl time.Duration) ([]*Segment, error) {
	if segments <= 0 {
		return nil, xerrors.WithCode(xerrors.Wrapf(ErrInvalidInput, "segments %d", segments), codeSegmentsNotPos)
	}
	if int64(segments) > math.MaxInt64/d.step {
		return nil, xerrors.WithCode(xerrors.Wrapf(ErrInvalidInput, "segments %d * step %d", segments, d.step), codeStepOverflow)
	}

	total := d.step * int64(segments)
	maxID, err := d.NextMaxID(ctx, total)
	if err != nil {
		return nil, err
	}

	now := d.clock.Now()
	offset := maxID - total
	out := make([]*Segment, segments)
	for i := range out {
		out[i] = NewSegmentAt(offset+d.step*int64(i+1), d.step, now, ttl)
	}
	return out, nil
}

func (d *distributor) NextChain(ctx context.Context, previous *Chain, ttl time.Duration) (*Chain, error) {
	seg, err := d.NextSegment(ctx, ttl)
	if err != nil {
		return nil, err
	}
	return NewChain(previous, seg), nil
}

func (d *distributor) NextChainN(ctx context.Context, previous *Chain, segments int, ttl time.Duration) (*Chain, error) {
	if segments == 1 {
		return d.NextChain(ctx, previous, ttl)
	}
	segs, err := d.NextSegments(ctx, segments, ttl)
	if err != nil {
		return nil, err
	}

	head := NewChain(previous, segs[0])
	cur := head
	for _, seg := range segs[1:] {
		n := NewChain(cur, seg)
		cur.SetNext(n)
		cur = n
	}
	return head, nil
}
