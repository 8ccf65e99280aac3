// Package observability records annotation mutation events and performance
// samples in SQLite, so a session's history can be inspected after the fact
// without any external monitoring stack.
//
// All persistence is non-blocking: event writes log failures instead of
// propagating them, and sample writes are buffered and flushed in batches.
package observability

import "database/sql"

// Schema contains the DDL for the observability tables. Call Init(db) to
// apply it, or embed the constant in your own schema management.
const Schema = `
-- Annotation mutation events
CREATE TABLE IF NOT EXISTS annotation_events (
    event_id      TEXT PRIMARY KEY,
    action        TEXT NOT NULL,
    annotation_id TEXT,
    selector      TEXT,
    details       TEXT,
    created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_annotation_events_time
    ON annotation_events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_annotation_events_annotation
    ON annotation_events(annotation_id, created_at DESC);

-- Performance samples
CREATE TABLE IF NOT EXISTS perf_samples (
    sample_id TEXT PRIMARY KEY,
    name      TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    value     REAL NOT NULL,
    unit      TEXT
);
CREATE INDEX IF NOT EXISTS idx_perf_samples_name_time
    ON perf_samples(name, timestamp DESC);
`

// Init applies the observability schema.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
