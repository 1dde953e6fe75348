package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

type MessageType string

const (
	MessageTypeTraffic        MessageType = "traffic"
	MessageTypeForecast       MessageType = "forecast"
	MessageTypeRecommendation MessageType = "recommendation"
	MessageTypeScalingEvent   MessageType = "scaling_event"
	MessageTypeFallback       MessageType = "predictor_fallback"
	MessageTypeConfig         MessageType = "config"
	MessageTypeError          MessageType = "error"
	MessageTypeSubscription   MessageType = "subscription_update"
)

type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func NewMessage(msgType MessageType, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

type SubscriptionData struct {
	Action string        `json:"action"`
	Topics []MessageType `json:"topics"`
}

// ScalingEventData is the compact view of an applied scale action.
type ScalingEventData struct {
	Action              string  `json:"action"`
	ServersBefore       int     `json:"servers_before"`
	ServersAfter        int     `json:"servers_after"`
	Reason              string  `json:"reason"`
	PredictedLoad       float64 `json:"predicted_load"`
	EstimatedCostChange float64 `json:"estimated_cost_change"`
}

func BroadcastScalingEvent(hub *Hub, event *models.ScalingEvent) {
	msg := NewMessage(MessageTypeScalingEvent, scalingEventData(event))
	hub.Broadcast(msg.Type, msg.JSON())
}

func scalingEventData(event *models.ScalingEvent) ScalingEventData {
	return ScalingEventData{
		Action:              string(event.Action),
		ServersBefore:       event.ServersBefore,
		ServersAfter:        event.ServersAfter,
		Reason:              event.Reason,
		PredictedLoad:       event.PredictedLoad,
		EstimatedCostChange: event.EstimatedCostDelta,
	}
}
