package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/devlens/idgen"
)

// Event is one annotation mutation to record.
type Event struct {
	Action       string // created, updated, status_changed, deleted, cleared
	AnnotationID string
	Selector     string
	Details      string // optional JSON
}

// EventLogger writes annotation events and manages retention cleanup.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
}

// EventLoggerOption configures an EventLogger.
type EventLoggerOption func(*EventLogger)

// WithEventIDGenerator sets a custom ID generator for event IDs.
func WithEventIDGenerator(gen idgen.Generator) EventLoggerOption {
	return func(l *EventLogger) { l.newID = gen }
}

// NewEventLogger creates a logger backed by the given database. The schema
// must already be applied (see Init).
func NewEventLogger(db *sql.DB, opts ...EventLoggerOption) *EventLogger {
	l := &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LogEvent records an annotation event. Non-blocking: errors are logged via
// slog but do not propagate, so a failing event store never blocks the tool.
func (l *EventLogger) LogEvent(ctx context.Context, event Event) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO annotation_events (
			event_id, action, annotation_id, selector, details, created_at
		) VALUES (?,?,?,?,?,?)`,
		l.newID(), event.Action, event.AnnotationID, event.Selector, event.Details,
		time.Now().Unix())
	if err != nil {
		slog.Error("observability event log failed", "error", err, "action", event.Action)
	}
}

// RecentEvents returns the newest events, most recent first.
func (l *EventLogger) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT action, annotation_id, selector, details
		FROM annotation_events ORDER BY created_at DESC, event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var annotationID, selector, details sql.NullString
		if err := rows.Scan(&e.Action, &annotationID, &selector, &details); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.AnnotationID = annotationID.String
		e.Selector = selector.String
		e.Details = details.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// RetentionConfig specifies per-table retention in days. Zero means no cleanup.
type RetentionConfig struct {
	EventsDays     int
	SamplesDays    int
	RunVacuumAfter bool
}

// Cleanup deletes records exceeding the retention thresholds.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig) error {
	now := time.Now().Unix()

	type cleanupTarget struct {
		table  string
		column string
		days   int
	}
	targets := []cleanupTarget{
		{"annotation_events", "created_at", cfg.EventsDays},
		{"perf_samples", "timestamp", cfg.SamplesDays},
	}

	for _, t := range targets {
		if t.days <= 0 {
			continue
		}
		cutoff := now - int64(t.days*86400)
		q := fmt.Sprintf("DELETE FROM %s WHERE %s < ?", t.table, t.column)
		if _, err := db.ExecContext(ctx, q, cutoff); err != nil {
			return fmt.Errorf("cleanup %s: %w", t.table, err)
		}
	}

	if cfg.RunVacuumAfter {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			return fmt.Errorf("vacuum: %w", err)
		}
	}
	return nil
}
