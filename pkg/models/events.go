package models

import "time"

type EventType string

const (
	EventTypeTrafficCollected   EventType = "traffic_collected"
	EventTypeForecastGenerated  EventType = "forecast_generated"
	EventTypePredictorFallback  EventType = "predictor_fallback"
	EventTypeRecommendationMade EventType = "recommendation_made"
	EventTypeScalingRecorded    EventType = "scaling_recorded"
	EventTypeConfigUpdated      EventType = "config_updated"
	EventTypeError              EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}

func (e *Event) At(ts time.Time) *Event {
	e.Timestamp = ts
	return e
}
