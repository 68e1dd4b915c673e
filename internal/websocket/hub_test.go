package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHubPublishEvent 测试事件序列化入广播通道
func TestHubPublishEvent(t *testing.T) {
	hub := NewHub(nil)

	hub.PublishEvent(EventTaskCreated, map[string]string{"id": "task-001"})

	select {
	case data := <-hub.Broadcast:
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, EventTaskCreated, event.Type)
		payload, ok := event.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "task-001", payload["id"])
	default:
		t.Fatal("expected event on broadcast channel")
	}
}

// TestHubPublishEventUnmarshalable 测试不可序列化的负载被丢弃
func TestHubPublishEventUnmarshalable(t *testing.T) {
	hub := NewHub(nil)

	hub.PublishEvent(EventTaskUpdated, make(chan int))

	select {
	case <-hub.Broadcast:
		t.Fatal("unmarshalable payload must be dropped")
	default:
	}
}

// TestHubSubscribers 测试 SSE 订阅者收到广播
func TestHubSubscribers(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	sub := hub.Subscribe()
	hub.PublishEvent(EventNotificationCreated, map[string]string{"id": "ntf-001"})

	select {
	case data := <-sub:
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, EventNotificationCreated, event.Type)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}

	hub.Unsubscribe(sub)
	_, open := <-sub
	assert.False(t, open, "unsubscribed channel must be closed")
}

// TestHubRegisterUnregister 测试客户端注册与注销
func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := &Client{
		ID:   "client-1",
		Hub:  hub,
		Send: make(chan []byte, 8),
	}

	hub.Register <- client
	assert.Eventually(t, func() bool {
		return hub.GetClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	// 注册后广播可达
	hub.PublishEvent(EventTaskUpdated, map[string]string{"id": "task-001"})
	select {
	case <-client.Send:
	case <-time.After(time.Second):
		t.Fatal("client did not receive the broadcast")
	}

	hub.Unregister <- client
	assert.Eventually(t, func() bool {
		return hub.GetClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}
