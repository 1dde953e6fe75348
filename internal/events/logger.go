package events

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

// ScalingEventStore persists applied scale actions.
type ScalingEventStore interface {
	Insert(ctx context.Context, event *models.ScalingEvent) error
}

// EventLogger writes every event to the structured log and persists
// scaling actions when a store is configured.
type EventLogger struct {
	store     ScalingEventStore
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	started   atomic.Bool
}

func NewEventLogger(store ScalingEventStore, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		store:     store,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	if l.started.CompareAndSwap(false, true) {
		go l.run()
	}
}

// Stop cancels the logger and waits for the loop to exit if it was started.
func (l *EventLogger) Stop() {
	l.cancel()
	if l.started.Load() {
		<-l.done
	}
}

func (l *EventLogger) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"event_id":   event.ID,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Debug(event.Message)
	}

	if event.Type == models.EventTypeScalingRecorded {
		l.persistScalingEvent(event)
	}
}

func (l *EventLogger) persistScalingEvent(event *models.Event) {
	if l.store == nil {
		return
	}
	scalingEvent, ok := event.Data.(*models.ScalingEvent)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(l.ctx, 5*time.Second)
	defer cancel()

	if err := l.store.Insert(ctx, scalingEvent); err != nil {
		logger.Errorf("Failed to persist scaling event: %v", err)
	}
}

func (l *EventLogger) LogToJSON(event *models.Event) string {
	data, _ := json.Marshal(event)
	return string(data)
}
