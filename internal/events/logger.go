package events

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/OldStager01/paas-autoscaler/internal/logger"
	"github.com/OldStager01/paas-autoscaler/pkg/database"
	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

// EventLogger drains the event bus, structured-logs every event, and
// persists scale events to the relational store for audit. db may be
// nil, in which case persistence is skipped (structured logging still
// happens) — this lets the control loop run without a configured
// database.
type EventLogger struct {
	db        *database.DB
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc

	tableChecked bool
	tableReady   bool
}

func NewEventLogger(db *database.DB, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		db:        db,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (l *EventLogger) Start() {
	go l.run()
}

func (l *EventLogger) Stop() {
	l.cancel()
}

func (l *EventLogger) run() {
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
		"app_name":   event.AppName,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	if event.Type == models.EventTypeScaleApplied {
		l.persistScaleEvent(event)
	}
}

func (l *EventLogger) persistScaleEvent(event *models.Event) {
	if l.db == nil {
		return
	}

	if !l.tableChecked {
		ready, err := l.db.TableExists(l.ctx, "scale_events")
		if err != nil {
			logger.Warnf("failed to check for scale_events table: %v", err)
		}
		l.tableReady = ready
		l.tableChecked = true
		if !l.tableReady {
			logger.Warn("scale_events table not found, scale event persistence disabled for this process")
		}
	}
	if !l.tableReady {
		return
	}

	scaleEvent, ok := event.Data.(*models.ScaleEvent)
	if !ok {
		return
	}

	err := l.db.WithTransaction(l.ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(l.ctx, `
			INSERT INTO scale_events
				(app_name, from_instances, to_instances, reason, succeeded, error, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			scaleEvent.AppName,
			scaleEvent.From,
			scaleEvent.To,
			scaleEvent.Reason,
			scaleEvent.Succeeded,
			scaleEvent.Error,
			scaleEvent.Timestamp,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(l.ctx, `
			INSERT INTO app_state (app_name, current_instances, desired_instances, updated_at)
			VALUES ($1, $2, $2, $3)
			ON CONFLICT (app_name) DO UPDATE SET
				current_instances = EXCLUDED.current_instances,
				desired_instances = EXCLUDED.desired_instances,
				updated_at = EXCLUDED.updated_at`,
			scaleEvent.AppName,
			scaleEvent.To,
			scaleEvent.Timestamp,
		)
		return err
	})
	if err != nil {
		logger.Errorf("failed to persist scale event: %v", err)
	}
}

func (l *EventLogger) LogToJSON(event *models.Event) string {
	data, _ := json.Marshal(event)
	return string(data)
}
