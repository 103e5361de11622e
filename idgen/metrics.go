package idgen

// 指标名称
const (
	// MetricChainPrefetch 号段链后台预取次数 (Counter)，标签 outcome
	MetricChainPrefetch = "idalloc_chain_prefetch_total"

	// MetricSegmentRefill 单号段生成器补充次数 (Counter)，标签 outcome
	MetricSegmentRefill = "idalloc_segment_refill_total"

	// MetricClockBackwards Snowflake 检测到的时钟回拨次数 (Counter)
	MetricClockBackwards = "idalloc_snowflake_clock_backwards_total"
)
