package observability

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/devlens/dbopen"
	"github.com/hazyhaar/devlens/perf"
)

func TestEventLogger_LogAndRecent(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("Init: %v", err)
	}
	l := NewEventLogger(db)
	ctx := context.Background()

	l.LogEvent(ctx, Event{Action: "created", AnnotationID: "ann_1", Selector: "#save"})
	l.LogEvent(ctx, Event{Action: "status_changed", AnnotationID: "ann_1", Selector: "#save", Details: `{"status":"resolved"}`})

	events, err := l.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events: got %d, want 2", len(events))
	}
	actions := map[string]bool{}
	for _, e := range events {
		actions[e.Action] = true
		if e.AnnotationID != "ann_1" {
			t.Errorf("AnnotationID: got %q", e.AnnotationID)
		}
	}
	if !actions["created"] || !actions["status_changed"] {
		t.Errorf("actions: got %v", actions)
	}
}

func TestEventLogger_RecentLimit(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("Init: %v", err)
	}
	l := NewEventLogger(db)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		l.LogEvent(ctx, Event{Action: "created", AnnotationID: "ann_x"})
	}
	events, err := l.RecentEvents(ctx, 3)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events: got %d, want 3", len(events))
	}
}

func TestSampleWriter_RecordAndQuery(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("Init: %v", err)
	}
	w := NewSampleWriter(db, 100, time.Hour)

	w.RecordStats(perf.Stats{
		FPS:         60,
		FrameTimeMS: 16.67,
		Heap:        &perf.HeapInfo{Used: 1 << 20},
	})
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	samples, err := w.Query(SampleFPS, nil, nil, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("fps samples: got %d, want 1", len(samples))
	}
	if samples[0].Value != 60 {
		t.Errorf("fps value: got %v, want 60", samples[0].Value)
	}

	all, err := w.Query("", nil, nil, 0)
	if err != nil {
		t.Fatalf("Query all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all samples: got %d, want 3", len(all))
	}
}

func TestSampleWriter_FlushOnBufferFull(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("Init: %v", err)
	}
	w := NewSampleWriter(db, 2, time.Hour)
	defer w.Close()

	now := time.Now()
	w.Record(Sample{Name: SampleFPS, Timestamp: now, Value: 58, Unit: "count"})
	w.Record(Sample{Name: SampleFPS, Timestamp: now, Value: 59, Unit: "count"})

	samples, err := w.Query(SampleFPS, nil, nil, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("samples after buffer flush: got %d, want 2", len(samples))
	}
}

func TestCleanup(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -30).Unix()
	if _, err := db.Exec(
		`INSERT INTO annotation_events (event_id, action, created_at) VALUES (?,?,?)`,
		"evt_old", "created", old); err != nil {
		t.Fatalf("insert old event: %v", err)
	}
	l := NewEventLogger(db)
	l.LogEvent(ctx, Event{Action: "created", AnnotationID: "ann_new"})

	if err := Cleanup(ctx, db, RetentionConfig{EventsDays: 7}); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	events, err := l.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events after cleanup: got %d, want 1", len(events))
	}
	if events[0].AnnotationID != "ann_new" {
		t.Errorf("survivor: got %q, want ann_new", events[0].AnnotationID)
	}
}
