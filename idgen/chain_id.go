package idgen

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/metrics"
	"github.com/ceyewan/idalloc/segment"
)

// SegmentChainID 号段链生成器
//
// head 指向当前消费的节点。节点耗尽后沿 next 切换，只有链上没有后继时才同步访问后端。
// 后台 worker 在切换时被唤醒（另有定时检查），保证 head 之后至少有 SafeDistance 个可用号段。
type SegmentChainID struct {
	dist   segment.Distributor
	cfg    ChainConfig
	clock  clock.Clock
	logger clog.Logger

	head atomic.Pointer[segment.Chain]
	// mu 串行化所有追加操作，持锁者看到的 Last() 一定是链尾
	mu sync.Mutex

	signal chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool

	failures   rate.Sometimes
	prefetches metrics.Counter
}

// NewSegmentChainID 创建号段链生成器并启动后台预取，使用完毕必须 Close
func NewSegmentChainID(dist segment.Distributor, cfg *ChainConfig, opts ...Option) (*SegmentChainID, error) {
	if dist == nil {
		return nil, ErrDistributorNil
	}
	var c ChainConfig
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	prefetches, err := o.meter.Counter(MetricChainPrefetch, "号段链后台预取次数")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &SegmentChainID{
		dist:       dist,
		cfg:        c,
		clock:      o.clock,
		logger:     o.logger.With(clog.String("series", dist.NamespacedName())),
		signal:     make(chan struct{}, 1),
		cancel:     cancel,
		done:       make(chan struct{}),
		failures:   rate.Sometimes{First: 1, Interval: 10 * time.Second},
		prefetches: prefetches,
	}
	g.head.Store(segment.NewRoot())

	go g.run(ctx)
	g.notify()

	g.logger.Info("segment chain generator started",
		clog.Int("safe_distance", c.SafeDistance),
		clog.Int("batch", c.Batch),
		clog.Duration("prefetch_interval", c.PrefetchInterval))
	return g, nil
}

// Next 返回下一个 ID
func (g *SegmentChainID) Next(ctx context.Context) (int64, error) {
	if g.closed.Load() {
		return 0, ErrClosed
	}
	for {
		head := g.head.Load()
		if seg := head.Segment(); !seg.IsExpired(g.clock.Now()) {
			if id := seg.IncrementAndGet(); id != segment.SequenceOverflow {
				return id, nil
			}
		}

		if next := head.Next(); next != nil {
			g.head.CompareAndSwap(head, next)
			g.notify()
			continue
		}
		if err := g.fetch(ctx, head); err != nil {
			return 0, err
		}
	}
}

// Head 返回当前消费的节点
func (g *SegmentChainID) Head() *segment.Chain {
	return g.head.Load()
}

// Distance head 之后仍可用的号段数
func (g *SegmentChainID) Distance() int {
	now := g.clock.Now()
	n := 0
	for c := g.head.Load().Next(); c != nil; c = c.Next() {
		if c.Segment().IsAvailable(now) {
			n++
		}
	}
	return n
}

// Close 停止后台预取，可重复调用
func (g *SegmentChainID) Close() {
	if !g.closed.CompareAndSwap(false, true) {
		return
	}
	g.cancel()
	<-g.done
	g.logger.Info("segment chain generator closed")
}

// fetch 链上没有后继时同步获取，tail 已有后继说明别的调用方刚追加过
func (g *SegmentChainID) fetch(ctx context.Context, tail *segment.Chain) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if tail.Next() != nil {
		return nil
	}

	node, err := g.dist.NextChainN(ctx, tail, g.cfg.Batch, g.cfg.TTL)
	if err != nil {
		g.logger.WarnContext(ctx, "fetch segment chain failed", clog.Error(err))
		return err
	}
	tail.SetNext(node)
	return nil
}

func (g *SegmentChainID) notify() {
	select {
	case g.signal <- struct{}{}:
	default:
	}
}

func (g *SegmentChainID) run(ctx context.Context) {
	defer close(g.done)
	ticker := g.clock.Ticker(g.cfg.PrefetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.signal:
		case <-ticker.C:
		}
		g.prefetch(ctx)
	}
}

// prefetch 把可用号段补足到 SafeDistance，一次往返取回全部缺口
func (g *SegmentChainID) prefetch(ctx context.Context) {
	want := g.cfg.SafeDistance - g.Distance()
	if want <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	tail, _ := g.head.Load().Last()
	node, err := g.dist.NextChainN(ctx, tail, want, g.cfg.TTL)
	g.prefetches.Inc(ctx, metrics.Outcome(err))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		g.failures.Do(func() {
			g.logger.Error("prefetch segment chain failed", clog.Int("want", want), clog.Error(err))
		})
		return
	}
	tail.SetNext(node)
	g.logger.Debug("segment chain prefetched",
		clog.Int("segments", want), clog.Int64("first_max_id", node.Segment().MaxID()))
}
