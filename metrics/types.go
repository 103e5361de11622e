// Package metrics 基于 OpenTelemetry 提供 Counter、Gauge、Histogram 指标，
// 通过 Prometheus exporter 暴露。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//		Enabled:     true,
//		ServiceName: "idalloc",
//		Port:        9090,
//		Path:        "/metrics",
//	})
//	defer meter.Shutdown(ctx)
//
//	fetches, _ := meter.Counter("idalloc_segment_fetch_total", "号段获取次数")
//	fetches.Inc(ctx, metrics.L(metrics.LabelNamespace, "order"), metrics.L(metrics.LabelOutcome, metrics.OutcomeSuccess))
//
// Enabled=false 或未注入 Meter 的组件使用 Discard()，所有操作为空。
package metrics

import (
	"context"
	"net/http"
)

// Counter 单调递增的计数器
type Counter interface {
	// Inc 加 1
	Inc(ctx context.Context, labels ...Label)
	// Add 加上 val，val 必须非负
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 可增可减的瞬时值
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 分布统计，常用于耗时
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标工厂
type Meter interface {
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Handler 返回 Prometheus 抓取端点
	Handler() http.Handler

	// Shutdown 关闭 HTTP 服务并刷新指标
	Shutdown(ctx context.Context) error
}

// MetricOption 单个指标的选项
type MetricOption func(*MetricOptions)

// MetricOptions 指标选项
type MetricOptions struct {
	Unit    string
	Buckets []float64
}

// WithUnit 设置单位，如 "s"、"ms"、"By"
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}

// WithBuckets 设置直方图桶边界
func WithBuckets(buckets ...float64) MetricOption {
	return func(o *MetricOptions) {
		o.Buckets = buckets
	}
}
