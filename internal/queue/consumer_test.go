package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu   sync.Mutex
	seen []string
	fail bool
}

func (h *recordingHandler) Handle(_ context.Context, msg redis.XMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, msg.Values["n"].(string))
	if h.fail {
		return errors.New("handler failed")
	}
	return nil
}

func newConsumer(t *testing.T, handler MessageHandler) (*Consumer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewConsumer(client, Options{
		Stream:   "generations:events",
		Group:    "archivers",
		Consumer: "w1",
		Block:    10 * time.Millisecond,
	}, zerolog.Nop(), handler)
	return c, client
}

func TestConsumer_EnsureGroupIdempotent(t *testing.T) {
	c, client := newConsumer(t, &recordingHandler{})
	ctx := context.Background()

	require.NoError(t, c.EnsureGroup(ctx))
	require.NoError(t, c.EnsureGroup(ctx))

	groups, err := client.XInfoGroups(ctx, "generations:events").Result()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "archivers", groups[0].Name)
}

func TestConsumer_ReadAcksHandled(t *testing.T) {
	handler := &recordingHandler{}
	c, client := newConsumer(t, handler)
	ctx := context.Background()
	require.NoError(t, c.EnsureGroup(ctx))

	for _, n := range []string{"1", "2", "3"} {
		require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "generations:events", Values: map[string]any{"n": n}}).Err())
	}

	require.NoError(t, c.read(ctx))
	assert.Equal(t, []string{"1", "2", "3"}, handler.seen)

	pending, err := client.XPending(ctx, "generations:events", "archivers").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestConsumer_FailedMessagesStayPending(t *testing.T) {
	handler := &recordingHandler{fail: true}
	c, client := newConsumer(t, handler)
	ctx := context.Background()
	require.NoError(t, c.EnsureGroup(ctx))

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "generations:events", Values: map[string]any{"n": "1"}}).Err())

	require.NoError(t, c.read(ctx))

	pending, err := client.XPending(ctx, "generations:events", "archivers").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count)
}

func TestConsumer_StartStopsOnCancel(t *testing.T) {
	c, _ := newConsumer(t, &recordingHandler{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
