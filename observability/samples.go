package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/devlens/idgen"
	"github.com/hazyhaar/devlens/perf"
)

// Sample is a single performance datapoint.
type Sample struct {
	Name      string // e.g. "fps", "frame_time_ms", "heap_used_bytes"
	Timestamp time.Time
	Value     float64
	Unit      string // "count", "milliseconds", "bytes"
}

// Standard sample name constants.
const (
	SampleFPS           = "fps"
	SampleFrameTimeMS   = "frame_time_ms"
	SampleHeapUsedBytes = "heap_used_bytes"
	SampleRSSBytes      = "rss_bytes"
)

// SampleWriter buffers performance samples and flushes them to SQLite in
// batches. Buffer overflow flushes early rather than dropping or blocking.
type SampleWriter struct {
	db            *sql.DB
	bufferSize    int
	flushInterval time.Duration
	newID         idgen.Generator
	buffer        []Sample
	mu            sync.Mutex
	stop          chan struct{}
	done          chan struct{}
}

// NewSampleWriter creates a writer that flushes samples in batches.
// Recommended defaults: bufferSize=100, flushInterval=5s.
func NewSampleWriter(db *sql.DB, bufferSize int, flushInterval time.Duration) *SampleWriter {
	w := &SampleWriter{
		db:            db,
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		newID:         idgen.Prefixed("smp_", idgen.Default),
		buffer:        make([]Sample, 0, bufferSize),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go w.flushLoop()
	return w
}

// Record queues a sample for async persistence. Non-blocking.
func (w *SampleWriter) Record(s Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer = append(w.buffer, s)
	if len(w.buffer) >= w.bufferSize {
		w.flushLocked()
	}
}

// RecordStats queues the interesting fields of one overlay stats emission.
func (w *SampleWriter) RecordStats(stats perf.Stats) {
	now := time.Now()
	w.Record(Sample{Name: SampleFPS, Timestamp: now, Value: float64(stats.FPS), Unit: "count"})
	w.Record(Sample{Name: SampleFrameTimeMS, Timestamp: now, Value: stats.FrameTimeMS, Unit: "milliseconds"})
	if stats.Heap != nil {
		w.Record(Sample{Name: SampleHeapUsedBytes, Timestamp: now, Value: float64(stats.Heap.Used), Unit: "bytes"})
	}
}

// Query retrieves samples filtered by name, time range and limit. Pass an
// empty name for all samples. Nil time pointers mean unbounded.
func (w *SampleWriter) Query(name string, startTime, endTime *time.Time, limit int) ([]Sample, error) {
	q := "SELECT name, timestamp, value, unit FROM perf_samples WHERE 1=1"
	args := make([]any, 0, 4)

	if name != "" {
		q += " AND name = ?"
		args = append(args, name)
	}
	if startTime != nil {
		q += " AND timestamp >= ?"
		args = append(args, startTime.Unix())
	}
	if endTime != nil {
		q += " AND timestamp <= ?"
		args = append(args, endTime.Unix())
	}
	q += " ORDER BY timestamp DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := w.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		var ts int64
		var unit sql.NullString
		if err := rows.Scan(&s.Name, &ts, &s.Value, &unit); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Timestamp = time.Unix(ts, 0)
		s.Unit = unit.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close flushes remaining samples and stops the background goroutine.
func (w *SampleWriter) Close() error {
	close(w.stop)
	<-w.done
	return nil
}

func (w *SampleWriter) flushLoop() {
	defer close(w.done)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			w.mu.Lock()
			w.flushLocked()
			w.mu.Unlock()
			return
		case <-ticker.C:
			w.mu.Lock()
			w.flushLocked()
			w.mu.Unlock()
		}
	}
}

func (w *SampleWriter) flushLocked() {
	if len(w.buffer) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("observability samples: begin tx", "error", err)
		return
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO perf_samples (sample_id, name, timestamp, value, unit) VALUES (?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		slog.Error("observability samples: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, s := range w.buffer {
		if _, err := stmt.ExecContext(ctx, w.newID(), s.Name, s.Timestamp.Unix(), s.Value, s.Unit); err != nil {
			slog.Error("observability samples: insert", "error", err, "sample", s.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("observability samples: commit", "error", err)
	}
	w.buffer = w.buffer[:0]
}
