package breaker

const (
	MetricStateChanges = "idalloc_breaker_state_changes_total"
	MetricRejects      = "idalloc_breaker_rejects_total"

	LabelKey  = "key"
	LabelFrom = "from_state"
	LabelTo   = "to_state"
)
