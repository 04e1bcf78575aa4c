package evaluation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"txguard/internal/evaluation/reference"
)

func newTracedService(t *testing.T) (*Service, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	engine, err := NewEngine(DefaultPolicy(),
		WithClock(func() time.Time { return fixedNow }),
		WithReferenceGenerator(reference.Fixed("TXN-TRACE")),
	)
	require.NoError(t, err)
	svc, err := NewService(engine,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithTracer(provider.Tracer("test")),
	)
	require.NoError(t, err)
	return svc, recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestEvaluateSpan(t *testing.T) {
	svc, recorder := newTracedService(t)

	_, err := svc.Evaluate(context.Background(), newRequest(), newCustomer())
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "evaluation.Evaluate", spans[0].Name())

	ref, ok := spanAttr(spans[0], "txguard.reference_number")
	require.True(t, ok)
	assert.Equal(t, "TXN-TRACE", ref.AsString())
}

func TestEvaluateSpanRecordsRejection(t *testing.T) {
	svc, recorder := newTracedService(t)

	_, err := svc.Evaluate(context.Background(), newRequest(), nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, ErrMsgCustomerRequired, spans[0].Status().Description)
}

func TestEvaluateBatchSpanParentsItems(t *testing.T) {
	svc, recorder := newTracedService(t)

	items := []BatchItem{
		{Request: newRequest(), Customer: newCustomer()},
		{Request: newRequest(), Customer: newCustomer()},
	}
	_, err := svc.EvaluateBatch(context.Background(), items)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	var batch sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == "evaluation.EvaluateBatch" {
			batch = s
		}
	}
	require.NotNil(t, batch)
	size, ok := spanAttr(batch, "txguard.batch_size")
	require.True(t, ok)
	assert.Equal(t, int64(2), size.AsInt64())

	for _, s := range spans {
		if s.Name() == "evaluation.Evaluate" {
			assert.Equal(t, batch.SpanContext().SpanID(), s.Parent().SpanID())
		}
	}
}
