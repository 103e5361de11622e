package connector

import (
	"context"
	"sync/atomic"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/metrics"
)

const (
	metricConnectTotal = "idalloc_connector_connect_total"
	metricHealthy      = "idalloc_connector_healthy"
)

// base 各连接器共用的健康状态、日志与指标
type base struct {
	kind    string
	name    string
	logger  clog.Logger
	healthy atomic.Bool

	connects metrics.Counter
	health   metrics.Gauge
}

func newBase(kind, name string, o *options) (*base, error) {
	b := &base{
		kind:   kind,
		name:   name,
		logger: o.logger.With(clog.String("connector", kind), clog.String("name", name)),
	}

	var err error
	if b.connects, err = o.meter.Counter(metricConnectTotal, "Connector connect attempts"); err != nil {
		return nil, err
	}
	if b.health, err = o.meter.Gauge(metricHealthy, "Connector health, 1 healthy 0 unhealthy"); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *base) labels() []metrics.Label {
	return []metrics.Label{metrics.L(metrics.LabelConnector, b.kind), metrics.L("name", b.name)}
}

func (b *base) recordConnect(ctx context.Context, err error) {
	b.connects.Inc(ctx, append(b.labels(), metrics.Outcome(err))...)
	b.setHealthy(ctx, err == nil)
}

func (b *base) setHealthy(ctx context.Context, ok bool) {
	b.healthy.Store(ok)
	v := 0.0
	if ok {
		v = 1
	}
	b.health.Set(ctx, v, b.labels()...)
}

func (b *base) IsHealthy() bool {
	return b.healthy.Load()
}

func (b *base) Name() string {
	return b.name
}
