package events

import (
	"fmt"

	"github.com/OldStager01/traffic-autoscaler/internal/clock"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	clock   clock.Clock
	traceID string
}

func NewPublisher(bus *EventBus, clk clock.Clock) *Publisher {
	if clk == nil {
		clk = clock.Real()
	}
	return &Publisher{bus: bus, clock: clk}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		clock:   p.clock,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event.At(p.clock.Now()))
}

func (p *Publisher) TrafficCollected(sample *models.LoadSample) {
	msg := fmt.Sprintf("Traffic collected: %.2f req/min", sample.Requests)
	p.publish(models.NewEvent(models.EventTypeTrafficCollected, msg).WithData(sample))
}

func (p *Publisher) ForecastGenerated(forecast *models.Forecast) {
	msg := fmt.Sprintf("Forecast generated for %d horizons", len(forecast.Predictions))
	p.publish(models.NewEvent(models.EventTypeForecastGenerated, msg).WithData(forecast))
}

func (p *Publisher) PredictorFallback(predictor string, err error) {
	event := models.NewEvent(models.EventTypePredictorFallback, "Predictor "+predictor+" unavailable, using fallback").
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{
			"predictor": predictor,
			"error":     err.Error(),
		})
	p.publish(event)
}

func (p *Publisher) RecommendationMade(rec *models.ScalingRecommendation) {
	msg := fmt.Sprintf("Recommendation: %s (%d -> %d)", rec.Action, rec.CurrentServers, rec.RecommendedServers)
	event := models.NewEvent(models.EventTypeRecommendationMade, msg).WithData(rec)
	if rec.Action.IsScaling() {
		event.WithSeverity(models.SeverityWarning)
	}
	p.publish(event)
}

func (p *Publisher) ScalingRecorded(scalingEvent *models.ScalingEvent) {
	msg := fmt.Sprintf("Scaling recorded: %s (%d -> %d)",
		scalingEvent.Action, scalingEvent.ServersBefore, scalingEvent.ServersAfter)
	p.publish(models.NewEvent(models.EventTypeScalingRecorded, msg).WithData(scalingEvent))
}

func (p *Publisher) ConfigUpdated(cfg interface{}) {
	p.publish(models.NewEvent(models.EventTypeConfigUpdated, "Autoscaling configuration updated").WithData(cfg))
}

func (p *Publisher) Error(message string, err error) {
	event := models.NewEvent(models.EventTypeError, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
