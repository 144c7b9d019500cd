// Package sqlstore implements the relational-store collaborator: the
// single parameterized query the ScheduledJobsScaler depends on, over
// the teacher's generic Postgres connection wrapper.
package sqlstore

import (
	"context"
	"fmt"

	"github.com/OldStager01/paas-autoscaler/pkg/database"
)

// Client executes the scheduled-jobs backlog query against the jobs
// table. It holds no scaler-specific state (no circuit breaker, no
// cooldown) — that belongs to the caller, per the decision notes on
// keeping collaborators narrow.
type Client struct {
	db *database.DB
}

func New(db *database.DB) *Client {
	return &Client{db: db}
}

// ScheduledJobsBacklog runs:
//
//	SELECT COALESCE(SUM(notification_count), 0) FROM jobs
//	WHERE scheduled_for - current_timestamp < interval '<lookahead>'
//	  AND job_status = 'scheduled'
//
// returning the single nonnegative integer the ScheduledJobsScaler
// scales against. lookahead is a Postgres interval literal, e.g.
// "1 minute".
func (c *Client) ScheduledJobsBacklog(ctx context.Context, lookahead string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(notification_count), 0)
		FROM jobs
		WHERE scheduled_for - current_timestamp < interval '%s'
		  AND job_status = 'scheduled'`, lookahead)

	var backlog int
	if err := c.db.QueryRowContext(ctx, query).Scan(&backlog); err != nil {
		return 0, fmt.Errorf("sqlstore: scheduled jobs backlog query: %w", err)
	}
	if backlog < 0 {
		backlog = 0
	}
	return backlog, nil
}
