package annotation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/devlens/idgen"
)

// DefaultStorageKey is the kv key annotations live under when the caller
// does not configure one.
const DefaultStorageKey = "devlens:annotations"

// Observer receives the annotation count after every mutation.
type Observer func(count int)

// Mutation actions passed to a MutationSink.
const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionStatusChanged = "status_changed"
	ActionDeleted       = "deleted"
	ActionCleared       = "cleared"
)

// MutationSink receives every successful mutation, typically for event
// logging. For cleared, the annotation is the zero value. Called outside
// the store lock; implementations must not block.
type MutationSink func(ctx context.Context, action string, a Annotation)

// Store maps annotation IDs to annotations, mirrored synchronously to a KV
// on every mutation. All operations are atomic from the caller's
// perspective: a single lock guards the mapping, and persistence happens
// before the operation returns.
type Store struct {
	mu        sync.Mutex
	m         map[string]Annotation
	kv        KV
	key       string
	newID     idgen.Generator
	logger    *slog.Logger
	observers map[int]Observer
	nextSub   int
	mutation  MutationSink

	comments *bluemonday.Policy // strips all markup from comments
	snippets *bluemonday.Policy // keeps safe markup in captured HTML
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStorageKey overrides the kv key.
func WithStorageKey(key string) StoreOption {
	return func(s *Store) { s.key = key }
}

// WithIDGenerator overrides the annotation ID strategy.
func WithIDGenerator(gen idgen.Generator) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// WithMutationSink registers a sink for mutation events.
func WithMutationSink(sink MutationSink) StoreOption {
	return func(s *Store) { s.mutation = sink }
}

// NewStore loads the mapping from kv and returns a ready store. A missing
// key starts empty; a malformed stored value is an error from the storage
// layer's JSON parsing, propagated as-is.
func NewStore(ctx context.Context, kv KV, opts ...StoreOption) (*Store, error) {
	s := &Store{
		m:         make(map[string]Annotation),
		kv:        kv,
		key:       DefaultStorageKey,
		newID:     idgen.Prefixed("ann_", idgen.Default),
		logger:    slog.Default(),
		observers: make(map[int]Observer),
		comments:  bluemonday.StrictPolicy(),
		snippets:  bluemonday.UGCPolicy(),
	}
	for _, o := range opts {
		o(s)
	}

	data, err := kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("annotation: load: %w", err)
	}
	if data != nil {
		if err := json.Unmarshal(data, &s.m); err != nil {
			return nil, fmt.Errorf("annotation: load: %w", err)
		}
	}
	return s, nil
}

// NewID generates a fresh annotation ID.
func (s *Store) NewID() string { return s.newID() }

// Read returns a copy of the current full mapping.
func (s *Store) Read() map[string]Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Annotation, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}

// Get returns one annotation and whether it exists.
func (s *Store) Get(id string) (Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.m[id]
	return a, ok
}

// Count returns the number of stored annotations.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Save inserts or overwrites by ID. Missing IDs are generated, CreatedAt is
// stamped if zero, status defaults to pending, and comment/snippet are
// sanitized before the mapping and its mirror are updated.
func (s *Store) Save(ctx context.Context, a Annotation) (Annotation, error) {
	if a.ID == "" {
		a.ID = s.newID()
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if !a.Status.Valid() {
		return Annotation{}, fmt.Errorf("annotation: save %s: unknown status %q", a.ID, a.Status)
	}
	a.Comment = s.comments.Sanitize(a.Comment)
	if a.Snippet != "" {
		a.Snippet = s.snippets.Sanitize(a.Snippet)
	}

	s.mu.Lock()
	prev, existed := s.m[a.ID]
	s.m[a.ID] = a
	if err := s.persistLocked(ctx); err != nil {
		if existed {
			s.m[a.ID] = prev
		} else {
			delete(s.m, a.ID)
		}
		s.mu.Unlock()
		return Annotation{}, err
	}
	count, obs := s.snapshotObserversLocked()
	s.mu.Unlock()

	notify(obs, count)
	action := ActionCreated
	if existed {
		action = ActionUpdated
	}
	s.emit(ctx, action, a)
	return a, nil
}

// UpdateStatus sets the status of an existing annotation. A missing ID is a
// silent no-op: no partial record is fabricated. Observers are notified in
// both cases.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("annotation: update %s: unknown status %q", id, status)
	}

	s.mu.Lock()
	a, ok := s.m[id]
	if !ok {
		s.logger.Debug("annotation: update status for unknown id", "id", id)
	}
	if ok {
		prev := a
		a.Status = status
		s.m[id] = a
		if err := s.persistLocked(ctx); err != nil {
			s.m[id] = prev
			s.mu.Unlock()
			return err
		}
	}
	count, obs := s.snapshotObserversLocked()
	s.mu.Unlock()

	notify(obs, count)
	if ok {
		s.emit(ctx, ActionStatusChanged, a)
	}
	return nil
}

// Delete removes an annotation. Idempotent: deleting an absent ID leaves
// the mapping unchanged and still notifies.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	prev, existed := s.m[id]
	if existed {
		delete(s.m, id)
		if err := s.persistLocked(ctx); err != nil {
			s.m[id] = prev
			s.mu.Unlock()
			return err
		}
	}
	count, obs := s.snapshotObserversLocked()
	s.mu.Unlock()

	notify(obs, count)
	if existed {
		s.emit(ctx, ActionDeleted, prev)
	}
	return nil
}

// Clear empties the mapping. Unconditional once invoked; interactive
// confirmation is the caller's concern.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	prev := s.m
	s.m = make(map[string]Annotation)
	if err := s.persistLocked(ctx); err != nil {
		s.m = prev
		s.mu.Unlock()
		return err
	}
	count, obs := s.snapshotObserversLocked()
	s.mu.Unlock()

	notify(obs, count)
	s.emit(ctx, ActionCleared, Annotation{})
	return nil
}

// Subscribe registers an observer for count-changed notifications and
// returns its unsubscribe function.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.m)
	if err != nil {
		return fmt.Errorf("annotation: marshal: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("annotation: persist: %w", err)
	}
	return nil
}

// snapshotObserversLocked copies the observer list so notification can run
// outside the lock; observers may call back into the store.
func (s *Store) snapshotObserversLocked() (int, []Observer) {
	obs := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		obs = append(obs, fn)
	}
	return len(s.m), obs
}

func notify(obs []Observer, count int) {
	for _, fn := range obs {
		fn(count)
	}
}

func (s *Store) emit(ctx context.Context, action string, a Annotation) {
	if s.mutation != nil {
		s.mutation(ctx, action, a)
	}
}
