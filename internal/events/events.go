package events

import (
	"sync"
	"sync/atomic"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

// EventBus fans events out to buffered subscriber channels. Slow
// subscribers lose events instead of blocking publishers.
type EventBus struct {
	subscribers map[models.EventType][]chan *models.Event
	allChans    []chan *models.Event // Track channels from SubscribeAll
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
	dropped     uint64
}

func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{
		subscribers: make(map[models.EventType][]chan *models.Event),
		allChans:    make([]chan *models.Event, 0),
		bufferSize:  bufferSize,
	}
}

func (b *EventBus) Subscribe(eventType models.EventType) <-chan *models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *models.Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

func (b *EventBus) SubscribeAll() <-chan *models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *models.Event, b.bufferSize)

	for _, eventType := range allEventTypes() {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}

	b.allChans = append(b.allChans, ch)
	return ch
}

func (b *EventBus) Publish(event *models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	subscribers := b.subscribers[event.Type]
	for _, ch := range subscribers {
		select {
		case ch <- event:
		default:
			atomic.AddUint64(&b.dropped, 1)
			logger.WithComponent("events").Warnf("Event channel full, dropping event: %s", event.Type)
		}
	}
}

// Dropped counts events discarded because a subscriber was full.
func (b *EventBus) Dropped() uint64 {
	return atomic.LoadUint64(&b.dropped)
}

// Unsubscribe closes and removes ch. It is a no-op once the bus is closed.
func (b *EventBus) Unsubscribe(ch <-chan *models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	var target chan *models.Event
	for eventType, subs := range b.subscribers {
		kept := subs[:0]
		for _, c := range subs {
			if (<-chan *models.Event)(c) == ch {
				target = c
				continue
			}
			kept = append(kept, c)
		}
		b.subscribers[eventType] = kept
	}
	for i, c := range b.allChans {
		if c == target {
			b.allChans = append(b.allChans[:i], b.allChans[i+1:]...)
			break
		}
	}
	if target != nil {
		close(target)
	}
}

func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	// Close channels from SubscribeAll (only once each)
	for _, ch := range b.allChans {
		close(ch)
	}

	// Close individual subscriptions (skip if already in allChans)
	closedChans := make(map[chan *models.Event]bool)
	for _, ch := range b.allChans {
		closedChans[ch] = true
	}

	for _, subscribers := range b.subscribers {
		for _, ch := range subscribers {
			if !closedChans[ch] {
				close(ch)
				closedChans[ch] = true
			}
		}
	}

	b.subscribers = make(map[models.EventType][]chan *models.Event)
	b.allChans = nil
}

func allEventTypes() []models.EventType {
	return []models.EventType{
		models.EventTypeTrafficCollected,
		models.EventTypeForecastGenerated,
		models.EventTypePredictorFallback,
		models.EventTypeRecommendationMade,
		models.EventTypeScalingRecorded,
		models.EventTypeConfigUpdated,
		models.EventTypeError,
	}
}