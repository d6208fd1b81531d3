package otel

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/hanpama/fieldmerge/internal/eventbus"
	events "github.com/hanpama/fieldmerge/internal/events"
	reqid "github.com/hanpama/fieldmerge/internal/reqid"
)

func TestValidationSpanNestsUnderHTTP(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	unsubscribe := Subscribe(tp.Tracer(instrumentationName))
	defer unsubscribe()

	ctx, _ := reqid.NewContext(context.Background())
	req := httptest.NewRequest("POST", "/validate", nil)
	eventbus.Publish(ctx, events.HTTPStart{Request: req})
	eventbus.Publish(ctx, events.ValidationStart{OperationName: "Q", Operations: 1})
	eventbus.Publish(ctx, events.ValidationFinish{OperationName: "Q", Operations: 1})
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 200})

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "graphql.validate", spans[0].Name())
	assert.Equal(t, "http.request", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestFinishWithoutStartIsIgnored(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer Subscribe(tp.Tracer(instrumentationName))()

	ctx, _ := reqid.NewContext(context.Background())
	eventbus.Publish(ctx, events.GRPCServerFinish{Service: "s", Method: "m"})
	assert.Empty(t, recorder.Ended())
}

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "fieldmerge")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
