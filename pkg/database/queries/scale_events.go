package queries

import (
	"context"
	"database/sql"

	"github.com/OldStager01/paas-autoscaler/pkg/models"
)

// ScaleEventRepository reads the audit trail events.EventLogger writes
// to the scale_events table, for the Observability API's history
// endpoints.
type ScaleEventRepository struct {
	db *sql.DB
}

func NewScaleEventRepository(db *sql.DB) *ScaleEventRepository {
	return &ScaleEventRepository{db: db}
}

// ListByApp returns the most recent scale events for one app, newest
// first, capped at limit.
func (r *ScaleEventRepository) ListByApp(ctx context.Context, appName string, limit int) ([]models.ScaleEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, app_name, from_instances, to_instances, reason, succeeded,
		       COALESCE(error, ''), occurred_at
		FROM scale_events
		WHERE app_name = $1
		ORDER BY occurred_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, appName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScaleEvents(rows)
}

// ListRecent returns the most recent scale events across every app.
func (r *ScaleEventRepository) ListRecent(ctx context.Context, limit int) ([]models.ScaleEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, app_name, from_instances, to_instances, reason, succeeded,
		       COALESCE(error, ''), occurred_at
		FROM scale_events
		ORDER BY occurred_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScaleEvents(rows)
}

func scanScaleEvents(rows *sql.Rows) ([]models.ScaleEvent, error) {
	var events []models.ScaleEvent
	for rows.Next() {
		var e models.ScaleEvent
		if err := rows.Scan(&e.ID, &e.AppName, &e.From, &e.To, &e.Reason, &e.Succeeded, &e.Error, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
