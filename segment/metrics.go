package segment

// 指标名称
const (
	MetricFetchTotal    = "idalloc_segment_fetch_total"
	MetricFetchDuration = "idalloc_segment_fetch_duration_seconds"
)

var fetchBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
