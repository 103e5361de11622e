// Package idgen 在号段分配器与机器号分配器之上提供开箱即用的 ID 生成器。
//
//   - SegmentID:      持有一个号段，耗尽后通过 singleflight 合并并发补充
//   - SegmentChainID: 号段链表 + 后台预取，耗尽时在内存中切换到下一段
//   - Snowflake:      启动时绑定机器号，生成 时间戳|机器号|序列号 形式的 ID，Close 时释放
//
// 三者都实现 Generator，并发安全。
//
// 基本使用：
//
//	dist, _ := segment.New(&segment.Config{Driver: segment.DriverRedis, Namespace: "order", Name: "id"},
//		segment.WithRedisConnector(redisConn))
//	gen, _ := idgen.NewSegmentChainID(dist, nil, idgen.WithLogger(logger))
//	defer gen.Close()
//	id, err := gen.Next(ctx)
package idgen

import "context"

// Generator 数字 ID 生成器
type Generator interface {
	Next(ctx context.Context) (int64, error)
}

var (
	_ Generator = (*SegmentID)(nil)
	_ Generator = (*SegmentChainID)(nil)
	_ Generator = (*Snowflake)(nil)
)
