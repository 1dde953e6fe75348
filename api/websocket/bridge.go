package websocket

import (
	"context"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

// EventBridge forwards bus events to WebSocket clients.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.WithComponent("websocket").Info("Event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	<-b.done
	logger.WithComponent("websocket").Info("Event bridge stopped")
}

func (b *EventBridge) run() {
	defer close(b.done)
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.WithComponent("websocket").Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	if se, ok := event.Data.(*models.ScalingEvent); ok && event.Type == models.EventTypeScalingRecorded {
		BroadcastScalingEvent(b.hub, se)
		return
	}

	msg := convertToWSMessage(event)
	if msg == nil {
		return
	}
	b.hub.Broadcast(msg.Type, msg.JSON())
}

func convertToWSMessage(event *models.Event) *OutgoingMessage {
	msgType := mapEventType(event.Type)
	if msgType == "" {
		return nil
	}

	return &OutgoingMessage{
		Type:      msgType,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		TraceID:   event.TraceID,
		Data:      event.Data,
	}
}

func mapEventType(eventType models.EventType) MessageType {
	switch eventType {
	case models.EventTypeTrafficCollected:
		return MessageTypeTraffic
	case models.EventTypeForecastGenerated:
		return MessageTypeForecast
	case models.EventTypeRecommendationMade:
		return MessageTypeRecommendation
	case models.EventTypeScalingRecorded:
		return MessageTypeScalingEvent
	case models.EventTypePredictorFallback:
		return MessageTypeFallback
	case models.EventTypeConfigUpdated:
		return MessageTypeConfig
	case models.EventTypeError:
		return MessageTypeError
	default:
		return ""
	}
}
