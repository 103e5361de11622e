package machine

// 指标名称
const (
	MetricDistributeTotal = "idalloc_machine_distribute_total"
	MetricRevertTotal     = "idalloc_machine_revert_total"
)
