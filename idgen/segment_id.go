package idgen

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/metrics"
	"github.com/ceyewan/idalloc/segment"
)

// SegmentID 单号段生成器
//
// 当前号段耗尽或过期时同步获取下一段，并发的补充请求只会触发一次后端调用。
type SegmentID struct {
	dist    segment.Distributor
	ttl     time.Duration
	clock   clock.Clock
	logger  clog.Logger
	refills metrics.Counter

	current atomic.Pointer[segment.Segment]
	group   singleflight.Group
}

// NewSegmentID 创建单号段生成器，cfg 为 nil 时使用默认配置
func NewSegmentID(dist segment.Distributor, cfg *SegmentConfig, opts ...Option) (*SegmentID, error) {
	if dist == nil {
		return nil, ErrDistributorNil
	}
	var c SegmentConfig
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()

	o := applyOptions(opts)
	refills, err := o.meter.Counter(MetricSegmentRefill, "单号段生成器补充次数")
	if err != nil {
		return nil, err
	}

	g := &SegmentID{
		dist:    dist,
		ttl:     c.TTL,
		clock:   o.clock,
		logger:  o.logger.With(clog.String("series", dist.NamespacedName())),
		refills: refills,
	}
	g.current.Store(segment.Overflow)
	return g, nil
}

// Next 返回下一个 ID
func (g *SegmentID) Next(ctx context.Context) (int64, error) {
	for {
		seg := g.current.Load()
		if !seg.IsExpired(g.clock.Now()) {
			if id := seg.IncrementAndGet(); id != segment.SequenceOverflow {
				return id, nil
			}
		}
		if err := g.refill(ctx, seg); err != nil {
			return 0, err
		}
	}
}

// Current 返回当前号段
func (g *SegmentID) Current() *segment.Segment {
	return g.current.Load()
}

// refill 合并并发的补充请求
//
// 共享的后端调用不随发起者的 ctx 取消，每个调用方只在自己的 ctx 上放弃等待。
func (g *SegmentID) refill(ctx context.Context, stale *segment.Segment) error {
	fetchCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan("refill", func() (any, error) {
		if g.current.Load() != stale {
			return nil, nil
		}
		seg, err := g.dist.NextSegment(fetchCtx, g.ttl)
		g.refills.Inc(fetchCtx, metrics.Outcome(err))
		if err != nil {
			g.logger.WarnContext(fetchCtx, "refill segment failed", clog.Error(err))
			return nil, err
		}
		g.current.Store(seg)
		g.logger.DebugContext(fetchCtx, "segment refilled", clog.Int64("max_id", seg.MaxID()))
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}
