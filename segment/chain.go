package segment

import (
	"sync/atomic"
	"weak"
)

// RootVersion 根节点版本号，第一个真实节点版本为 0
const RootVersion int64 = -1

// Chain 号段链表节点
//
// next 只能设置一次（SetNext），设置前节点已完整构造，读方看到的一定是初始化完成的节点。
// previous 是弱引用，消费者只持有链表中较新的节点时，已耗尽的旧节点可以被回收。
type Chain struct {
	segment  *Segment
	version  int64
	previous weak.Pointer[Chain]
	next     atomic.Pointer[Chain]
}

// NewRoot 返回包装 Overflow 的根节点，作为首次预取的 previous
func NewRoot() *Chain {
	return &Chain{segment: Overflow, version: RootVersion}
}

// NewChain 创建接在 previous 之后的节点，不会修改 previous.next
//
// previous 为 nil 时视为根节点之后的第一个节点。
func NewChain(previous *Chain, seg *Segment) *Chain {
	c := &Chain{segment: seg, version: RootVersion + 1}
	if previous != nil {
		c.version = previous.version + 1
		c.previous = weak.Make(previous)
	}
	return c
}

func (c *Chain) Segment() *Segment { return c.segment }

func (c *Chain) Version() int64 { return c.version }

// Previous 返回前驱节点，前驱已被回收或不存在时返回 nil
func (c *Chain) Previous() *Chain { return c.previous.Value() }

// Next 返回已发布的后继，未发布时返回 nil
func (c *Chain) Next() *Chain { return c.next.Load() }

// SetNext 发布后继节点，只有第一次调用成功
func (c *Chain) SetNext(next *Chain) bool {
	if next == nil {
		return false
	}
	return c.next.CompareAndSwap(nil, next)
}

// Last 沿 next 走到链尾，返回尾节点与经过的跳数
func (c *Chain) Last() (*Chain, int) {
	tail, hops := c, 0
	for n := tail.Next(); n != nil; n = tail.Next() {
		tail = n
		hops++
	}
	return tail, hops
}
