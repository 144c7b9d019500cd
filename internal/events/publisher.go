package events

import (
	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

// Publisher builds and emits Events for one trace (one tick, one app
// decision), tagging every event it publishes with that trace ID.
type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) TickCompleted(appCount int, duration string) {
	event := models.NewEvent(models.EventTypeTickCompleted, "", "tick completed").
		WithData(map[string]interface{}{"apps": appCount, "duration": duration})
	p.publish(event)
}

func (p *Publisher) ScaleApplied(scaleEvent *models.ScaleEvent) {
	msg := "scaled " + scaleEvent.AppName
	event := models.NewEvent(models.EventTypeScaleApplied, scaleEvent.AppName, msg).
		WithData(scaleEvent)
	if !scaleEvent.Succeeded {
		event.WithSeverity(models.SeverityWarning)
	}
	p.publish(event)
}

func (p *Publisher) ScaleSkipped(appName, reason string, current int) {
	event := models.NewEvent(models.EventTypeScaleSkipped, appName, reason).
		WithData(map[string]interface{}{"current_instances": current, "reason": reason})
	p.publish(event)
}

func (p *Publisher) AuthFailure(err error) {
	event := models.NewEvent(models.EventTypeAuthFailure, "", "paas authentication failed").
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{"error": err.Error()})
	p.publish(event)
}

func (p *Publisher) SignalFailure(appName, scalerName string, err error) {
	event := models.NewEvent(models.EventTypeSignalFailure, appName, "signal source unavailable for "+scalerName).
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{"scaler": scalerName, "error": err.Error()})
	p.publish(event)
}

func (p *Publisher) Alert(appName string, severity models.EventSeverity, message string, data interface{}) {
	event := models.NewEvent(models.EventTypeAlert, appName, message).
		WithSeverity(severity).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) Error(appName string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, appName, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{"error": err.Error()})
	p.publish(event)
}
