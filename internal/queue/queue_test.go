package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: "checkin", Body: []byte(`{"a":"b|c"}`)}
	got := deserialize(serialize(msg))
	assert.Equal(t, msg, got)
}

func TestDeserializeWithoutType(t *testing.T) {
	got := deserialize("plain")
	assert.Equal(t, "", got.Type)
	assert.Equal(t, []byte("plain"), got.Body)
}

func TestInMemoryDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: "checkin", Body: []byte("1")}))
	require.NoError(t, q.Publish(ctx, Message{Type: "checkin", Body: []byte("2")}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	for _, want := range []string{"1", "2"} {
		select {
		case msg := <-msgs:
			assert.Equal(t, want, string(msg.Body))
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestInMemoryConsumeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	cancel()
	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("consumer channel not closed")
	}
}

func TestInMemoryPublishHonoursContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.Publish(ctx, Message{Type: "checkin"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisQueueRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	key := "test:queue:" + time.Now().Format("150405.000000")
	defer client.Del(context.Background(), key)

	q := NewRedisQueue(client, key)
	require.NoError(t, q.Publish(ctx, Message{Type: "checkin", Body: []byte("payload")}))
	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	select {
	case msg := <-msgs:
		assert.Equal(t, "checkin", msg.Type)
		assert.Equal(t, "payload", string(msg.Body))
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}
