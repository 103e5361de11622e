package metrics

// 常用标签
const (
	LabelNamespace = "namespace"
	LabelOutcome   = "outcome"
	LabelDriver    = "driver"
	LabelConnector = "connector"
)

// 常用结果
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Label 指标标签
//
// 标签值应当是低基数的，不要放入实例 ID、请求 ID 一类的值。
type Label struct {
	Key   string
	Value string
}

// L 构造 Label
//
//	counter.Inc(ctx, metrics.L("namespace", "order"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// Outcome 按 err 是否为 nil 返回结果标签
func Outcome(err error) Label {
	if err != nil {
		return L(LabelOutcome, OutcomeError)
	}
	return L(LabelOutcome, OutcomeSuccess)
}
