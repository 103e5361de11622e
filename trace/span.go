package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracerName 组件 Span 所属的 instrumentation scope
const TracerName = "github.com/ceyewan/idalloc"

// Span 名称
const (
	SpanSegmentNextMaxID  = "segment.next_max_id"
	SpanMachineDistribute = "machine.distribute"
	SpanMachineRevert     = "machine.revert"
)

// 属性键
const (
	AttrNamespace  = "idalloc.namespace"
	AttrDriver     = "idalloc.driver"
	AttrStep       = "idalloc.step"
	AttrMaxID      = "idalloc.max_id"
	AttrMachineID  = "idalloc.machine_id"
	AttrMachineBit = "idalloc.machine_bit"
	AttrInstanceID = "idalloc.instance_id"
)

func Namespace(ns string) attribute.KeyValue { return attribute.String(AttrNamespace, ns) }
func Driver(d string) attribute.KeyValue { return attribute.String(AttrDriver, d) }
func Step(step int64) attribute.KeyValue { return attribute.Int64(AttrStep, step) }
func MaxID(id int64) attribute.KeyValue { return attribute.Int64(AttrMaxID, id) }
func MachineID(id int64) attribute.KeyValue { return attribute.Int64(AttrMachineID, id) }
func MachineBit(bits int) attribute.KeyValue { return attribute.Int(AttrMachineBit, bits) }
func InstanceID(id string) attribute.KeyValue { return attribute.String(AttrInstanceID, id) }

// Start 使用全局 TracerProvider 开启 Span
//
// 未调用 Init/Discard 时全局 Provider 为 noop，开销可以忽略。
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

// End 记录错误并结束 Span
func End(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
