package syncx

import (
	"context"
	"database/sql"
	"time"
)

// Event types recorded for the attempt audit trail.
const (
	EventAttemptStarted   = "AttemptStarted"
	EventAttemptReopened  = "AttemptReopened"
	EventAttemptSubmitted = "AttemptSubmitted"
	EventAttemptReviewed  = "AttemptReviewed"
)

type Event struct {
	Offset    int64
	Type      string
	Key       string // natural key: attemptID
	DataJSON  string
	CreatedAt int64
}

// EventRepo appends to the append-only event_log table. Rows are never
// updated or deleted; the log is the audit trail behind attempt rows.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

func (r *EventRepo) List(ctx context.Context, key string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT "offset", typ, key, data, created_at FROM event_log WHERE key=$1 ORDER BY "offset"`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
