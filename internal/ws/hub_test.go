package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	failNext bool
}

func (c *fakeClient) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.messages...)
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHubBroadcastsToRegisteredClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	good := &fakeClient{}
	bad := &fakeClient{failNext: true}
	require.True(t, hub.Join(good))
	require.True(t, hub.Join(bad))
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Publish(Event{Type: "bill", Action: "bill_created", Data: map[string]any{"total_amount": 110}})

	require.Eventually(t, func() bool { return len(good.received()) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, bad.isClosed())

	var got Event
	require.NoError(t, json.Unmarshal(good.received()[0], &got))
	assert.Equal(t, "bill_created", got.Action)

	cancel()
	<-done
	assert.True(t, good.isClosed())
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubPublishDoesNotBlockWithoutRunLoop(t *testing.T) {
	hub := NewHub(zap.NewNop())
	for i := 0; i < cap(hub.Broadcast)+10; i++ {
		hub.Publish(Event{Type: "stock_update", Action: "product_updated"})
	}
	assert.Len(t, hub.Broadcast, cap(hub.Broadcast))
}

func TestHubJoinAndLeaveReturnAfterShutdown(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	early := &fakeClient{}
	require.True(t, hub.Join(early))
	cancel()
	<-done

	returned := make(chan bool, 1)
	go func() {
		hub.Leave(early)
		returned <- hub.Join(&fakeClient{})
	}()

	select {
	case joined := <-returned:
		assert.False(t, joined)
	case <-time.After(time.Second):
		t.Fatal("Leave/Join blocked after the hub stopped")
	}
	assert.True(t, early.isClosed())
}
