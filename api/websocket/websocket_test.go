package websocket

import (
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/traffic-autoscaler/pkg/config"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) *OutgoingMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg OutgoingMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewWebSocketSettings(t *testing.T) {
	s := NewWebSocketSettings(nil)
	assert.Equal(t, defaultPongWait, s.PongWait)
	assert.Equal(t, defaultPongWait*9/10, s.PingPeriod)
	assert.Equal(t, 0, s.MaxConnections)

	s = NewWebSocketSettings(&config.WebSocketConfig{
		PongTimeout:    10 * time.Second,
		PingInterval:   20 * time.Second,
		MaxConnections: 3,
		ClientBuffer:   8,
	})
	assert.Equal(t, 9*time.Second, s.PingPeriod, "ping must be shorter than the pong wait")
	assert.Equal(t, 3, s.MaxConnections)
	assert.Equal(t, 8, s.ClientBuffer)
}

func TestHub_BroadcastHonoursTopics(t *testing.T) {
	hub := startHub(t)

	all := NewClient(hub, nil, nil)
	forecasts := NewClient(hub, nil, []MessageType{MessageTypeForecast})
	hub.Register(all)
	hub.Register(forecasts)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(MessageTypeRecommendation, NewMessage(MessageTypeRecommendation, nil).JSON())
	assert.Equal(t, MessageTypeRecommendation, receive(t, all).Type)
	assertNothing(t, forecasts)

	hub.Broadcast(MessageTypeForecast, NewMessage(MessageTypeForecast, nil).JSON())
	assert.Equal(t, MessageTypeForecast, receive(t, all).Type)
	assert.Equal(t, MessageTypeForecast, receive(t, forecasts).Type)
}

func TestHub_ClientCountCallbackAndStop(t *testing.T) {
	var count atomic.Int64
	hub := NewHub(&config.WebSocketConfig{MaxConnections: 1})
	hub.OnClientCount(func(n int) { count.Store(int64(n)) })
	go hub.Run()

	client := NewClient(hub, nil, nil)
	hub.Register(client)
	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, hub.Full())

	hub.Stop()
	require.Eventually(t, func() bool { return count.Load() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-client.send
	assert.False(t, ok)

	// Register after Stop must not block
	hub.Register(NewClient(hub, nil, nil))
}

func TestClient_Subscriptions(t *testing.T) {
	hub := NewHub(nil)
	c := NewClient(hub, nil, nil)

	assert.True(t, c.wants(MessageTypeScalingEvent))

	c.handleMessage(&IncomingMessage{Type: "subscribe", Topics: []MessageType{MessageTypeScalingEvent}})
	msg := receive(t, c)
	assert.Equal(t, MessageTypeSubscription, msg.Type)
	assert.True(t, c.wants(MessageTypeScalingEvent))
	assert.False(t, c.wants(MessageTypeForecast))

	c.handleMessage(&IncomingMessage{Type: "unsubscribe"})
	receive(t, c)
	assert.False(t, c.wants(MessageTypeScalingEvent))
	assert.True(t, c.wants(MessageTypeSubscription))
}

func TestParseTopics(t *testing.T) {
	assert.Nil(t, parseTopics(""))
	assert.Equal(t, []MessageType{MessageTypeForecast, MessageTypeScalingEvent}, parseTopics("forecast, scaling_event,"))
}

func TestEventBridge_Forwards(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub, nil, nil)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	ch := make(chan *models.Event, 4)
	bridge := NewEventBridge(hub, ch)
	bridge.Start()
	defer bridge.Stop()

	rec := &models.ScalingRecommendation{
		CurrentServers:      2,
		RecommendedServers:  4,
		Action:              models.ActionScaleOut,
		Reason:              "predicted utilization 95%",
		EstimatedCostChange: 0.2,
	}
	ch <- models.NewEvent(models.EventTypeScalingRecorded, "scaled").WithData(models.NewScalingEvent(rec, 700))

	msg := receive(t, client)
	assert.Equal(t, MessageTypeScalingEvent, msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["servers_before"])
	assert.Equal(t, float64(4), data["servers_after"])
	assert.Equal(t, float64(700), data["predicted_load"])

	ch <- models.NewEvent(models.EventTypeForecastGenerated, "forecast").WithTraceID("abc")
	msg = receive(t, client)
	assert.Equal(t, MessageTypeForecast, msg.Type)
	assert.Equal(t, "abc", msg.TraceID)

	ch <- models.NewEvent(models.EventType("internal_only"), "skip")
	assertNothing(t, client)
}

func TestMapEventType(t *testing.T) {
	tests := []struct {
		in   models.EventType
		want MessageType
	}{
		{models.EventTypeTrafficCollected, MessageTypeTraffic},
		{models.EventTypeForecastGenerated, MessageTypeForecast},
		{models.EventTypeRecommendationMade, MessageTypeRecommendation},
		{models.EventTypeScalingRecorded, MessageTypeScalingEvent},
		{models.EventTypePredictorFallback, MessageTypeFallback},
		{models.EventTypeConfigUpdated, MessageTypeConfig},
		{models.EventTypeError, MessageTypeError},
		{models.EventType("other"), ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mapEventType(tt.in), string(tt.in))
	}
}
