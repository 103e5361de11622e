// Package segment 实现号段模式的 ID 分配。
//
// 后端计数器（Store）每次原子地前进 step，返回新的上界 maxID，
// 调用方独占区间 (maxID-step, maxID]，在本地通过原子自增消费。
// Chain 把多个号段串成单向链表，当前号段耗尽时直接切换到已预取的下一段，
// 热路径上不需要访问后端。
//
// 基本使用：
//
//	dist := segment.NewAtomic(segment.DefaultStep)
//	seg, _ := dist.NextSegment(ctx, segment.TTLForever)
//	for id := seg.IncrementAndGet(); id != segment.SequenceOverflow; id = seg.IncrementAndGet() {
//		use(id)
//	}
//
// 号段耗尽通过 SequenceOverflow 返回值表示，不是错误；
// 后端失败返回 ErrAllocationFailed，调用方可以重试。
package segment

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

const (
	// DefaultStep 单次获取的号段宽度
	DefaultStep int64 = 100
	// DefaultSegments 批量获取的默认段数
	DefaultSegments = 1
	// SequenceOverflow 号段耗尽时 IncrementAndGet 的返回值
	SequenceOverflow int64 = -1
	// TTLForever 号段永不过期
	TTLForever = time.Duration(math.MaxInt64)
)

// Overflow 全零的哨兵号段，始终处于耗尽状态，不代表任何真实分配
var Overflow = &Segment{}

// Segment 一次分配得到的区间 (offset, maxID]
//
// 除 sequence 外所有字段在构造后只读，可被任意多个 goroutine 并发消费。
type Segment struct {
	maxID     int64
	offset    int64
	step      int64
	sequence  atomic.Int64
	fetchTime time.Time
	ttl       time.Duration
}

// NewSegment 以当前时间为获取时间创建永不过期的号段
//
// step <= 0 属于调用方编程错误，直接 panic。
func NewSegment(maxID, step int64) *Segment {
	return NewSegmentAt(maxID, step, time.Now(), TTLForever)
}

// NewSegmentAt 创建号段，ttl <= 0 或 TTLForever 表示永不过期
func NewSegmentAt(maxID, step int64, fetchTime time.Time, ttl time.Duration) *Segment {
	if step <= 0 {
		panic(fmt.Sprintf("segment: step must be positive, got %d", step))
	}
	s := &Segment{
		maxID:     maxID,
		offset:    maxID - step,
		step:      step,
		fetchTime: fetchTime,
		ttl:       ttl,
	}
	s.sequence.Store(s.offset)
	return s
}

func (s *Segment) MaxID() int64 { return s.maxID }

// Offset 区间下界（不含）
func (s *Segment) Offset() int64 { return s.offset }

func (s *Segment) Step() int64 { return s.step }

// Sequence 当前游标，最后一次发出的值
func (s *Segment) Sequence() int64 { return s.sequence.Load() }

func (s *Segment) FetchTime() time.Time { return s.fetchTime }

func (s *Segment) TTL() time.Duration { return s.ttl }

// IncrementAndGet 返回 (offset, maxID] 内的下一个值，耗尽时返回 SequenceOverflow
//
// 先检查再自增再复查：多个调用方同时越过边界时，越界的那次自增被丢弃，
// 返回 SequenceOverflow 而不是越界值。从不阻塞。
func (s *Segment) IncrementAndGet() int64 {
	if s.IsOverflow() {
		return SequenceOverflow
	}
	next := s.sequence.Add(1)
	if next > s.maxID {
		return SequenceOverflow
	}
	return next
}

// IsOverflow 游标已到达上界
func (s *Segment) IsOverflow() bool {
	return s.sequence.Load() >= s.maxID
}

// IsExpired 获取时间距 now 超过 ttl
func (s *Segment) IsExpired(now time.Time) bool {
	if s.ttl <= 0 || s.ttl == TTLForever {
		return false
	}
	return now.Sub(s.fetchTime) > s.ttl
}

// IsAvailable 既未耗尽也未过期
func (s *Segment) IsAvailable(now time.Time) bool {
	return !s.IsOverflow() && !s.IsExpired(now)
}

// Remaining 尚未发出的 ID 数量
func (s *Segment) Remaining() int64 {
	return max(s.maxID-s.sequence.Load(), 0)
}

func (s *Segment) String() string {
	ttl := "forever"
	if s.ttl > 0 && s.ttl != TTLForever {
		ttl = s.ttl.String()
	}
	return fmt.Sprintf("Segment{maxID=%d, offset=%d, step=%d, sequence=%d, fetchTime=%s, ttl=%s}",
		s.maxID, s.offset, s.step, s.Sequence(), s.fetchTime.Format(time.RFC3339Nano), ttl)
}
