package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ceyewan/idalloc/xerrors"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig("idalloc").validate())

	bad := []*Config{
		nil,
		{Endpoint: "x"},
		{ServiceName: "s"},
		{ServiceName: "s", Endpoint: "x", Sampler: 2},
		{ServiceName: "s", Endpoint: "x", Batcher: "stream"},
	}
	for _, c := range bad {
		assert.True(t, xerrors.Is(c.validate(), xerrors.ErrInvalidInput))
	}
}

func TestInit_InvalidConfig(t *testing.T) {
	_, err := Init(nil)
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	shutdown, err := Discard("idalloc-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, span := Start(context.Background(), SpanSegmentNextMaxID)
	assert.True(t, span.SpanContext().HasTraceID())
	End(span, nil)
}

func TestStartEnd(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := Start(context.Background(), SpanMachineDistribute, Namespace("order"), MachineBit(10))
	End(span, errors.New("no free machine id"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, SpanMachineDistribute, spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), Namespace("order"))
}
