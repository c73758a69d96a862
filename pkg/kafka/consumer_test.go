package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	calls int
	errs  []error
}

func (h *stubHandler) Topic() string { return "kpi.refresh.requests" }

func (h *stubHandler) Handle(context.Context, []byte) error {
	h.calls++
	if len(h.errs) >= h.calls {
		return h.errs[h.calls-1]
	}
	return nil
}

func newTestConsumer(t *testing.T, opts ...ConsumerOption) *Consumer {
	t.Helper()
	c, err := NewConsumer(append([]ConsumerOption{WithConsumerBrokers([]string{"localhost:9092"})}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	require.Error(t, err)
}

func TestHandleRetriesThenSucceeds(t *testing.T) {
	c := newTestConsumer(t, WithConsumerRetry(2, time.Millisecond, time.Millisecond))
	h := &stubHandler{errs: []error{errors.New("first"), errors.New("second")}}

	err := c.handle(context.Background(), h, kafka.Message{Value: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, 3, h.calls)
}

func TestHandleWithoutRetryReturnsError(t *testing.T) {
	c := newTestConsumer(t)
	h := &stubHandler{errs: []error{errors.New("boom")}}

	err := c.handle(context.Background(), h, kafka.Message{})
	require.EqualError(t, err, "boom")
	assert.Equal(t, 1, h.calls)
}

func TestHookBeforeCanSkip(t *testing.T) {
	c := newTestConsumer(t)
	c.WithConsumerHook(HookFuncs{
		Before: func(ctx context.Context, _ string, _ kafka.Message) (context.Context, error) {
			return ctx, errors.New("rejected")
		},
	})
	h := &stubHandler{}

	err := c.handle(context.Background(), h, kafka.Message{})
	require.EqualError(t, err, "rejected")
	assert.Zero(t, h.calls)
}

func TestTraceIDPropagated(t *testing.T) {
	c := newTestConsumer(t)
	var seen string
	c.WithConsumerHook(HookFuncs{
		Before: func(ctx context.Context, _ string, _ kafka.Message) (context.Context, error) {
			seen = TraceIDFrom(ctx)
			return ctx, nil
		},
	})

	msg := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("t-1")}}}
	require.NoError(t, c.handle(context.Background(), &stubHandler{}, msg))
	assert.Equal(t, "t-1", seen)
}

func TestBackoffBounded(t *testing.T) {
	for attempt := 1; attempt < 70; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.LessOrEqual(t, d, 100*time.Millisecond)
		assert.Greater(t, d, time.Duration(0))
	}
}
