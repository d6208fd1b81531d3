package logging

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/codes"

	eventbus "github.com/hanpama/fieldmerge/internal/eventbus"
	events "github.com/hanpama/fieldmerge/internal/events"
	language "github.com/hanpama/fieldmerge/internal/language"
	reqid "github.com/hanpama/fieldmerge/internal/reqid"
	validator "github.com/hanpama/fieldmerge/internal/validator"
)

func TestNew(t *testing.T) {
	logger, err := New("debug", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New("warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = New("loud", false)
	require.Error(t, err)
}

func TestSubscribe(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	core, logs := observer.New(zapcore.DebugLevel)
	unsubscribe := Subscribe(zap.New(core))

	ctx, id := reqid.NewContext(context.Background())
	eventbus.Publish(ctx, events.ValidationFinish{
		OperationName: "Q",
		Operations:    1,
		Errors:        language.ErrorList{{Message: "boom"}},
		Counters:      map[string]int{validator.CounterComparisons: 3},
		Duration:      time.Millisecond,
	})
	eventbus.Publish(ctx, events.HTTPFinish{Request: httptest.NewRequest("POST", "/validate", nil), Status: 200})
	eventbus.Publish(ctx, events.GRPCServerFinish{Service: "fieldmerge.v1.Validator", Method: "Validate", Code: codes.InvalidArgument, Err: assert.AnError})

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	assert.Equal(t, "validated document", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, id, fields["request_id"])
	assert.Equal(t, int64(1), fields["errors"])
	assert.Equal(t, int64(3), fields["comparisons"])

	assert.Equal(t, "http request", entries[1].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)

	assert.Equal(t, "grpc call failed", entries[2].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)

	unsubscribe()
	eventbus.Publish(ctx, events.ValidationFinish{})
	assert.Equal(t, 3, logs.Len())
}
