package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/events"
	"github.com/aretw0/wayfarer/pkg/ports"
)

// DefaultArtifactKey is the Store key holding a session's final plan.
const DefaultArtifactKey = "final_travel_guide"

// DefaultLockTTL bounds how long a distributed run lock is held.
const DefaultLockTTL = 30 * time.Second

// ErrRegistryClosed is returned once Close has been called.
var ErrRegistryClosed = errors.New("session registry closed")

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Registry is the single owner of session lifetime in a process.
//
// It is constructed explicitly at startup, handed to the layers that need
// it and torn down with Close. When a SnapshotStore is configured, sessions
// are checkpointed to it and restored from it on a lookup miss.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	lockMu sync.Mutex            // Global lock for the locks map
	locks  map[string]*lockEntry // Map of active run locks

	snapshots   ports.SnapshotStore     // Optional persistence
	locker      ports.DistributedLocker // Optional distributed locker
	lockTTL     time.Duration
	logger      *slog.Logger
	newID       func() string
	now         func() time.Time
	initState   func() map[string]any
	artifactKey string
	emitterOpts []events.Option
}

// Option configures the Registry.
type Option func(*Registry)

// WithSnapshotStore enables persistence of sessions.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(r *Registry) {
		r.snapshots = store
	}
}

// WithLocker enables distributed locking around runs.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(r *Registry) {
		r.locker = locker
		if ttl > 0 {
			r.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithIDGenerator overrides the uuid based session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// WithClock overrides the time source for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithInitialState sets the function producing a new session's Store contents.
func WithInitialState(fn func() map[string]any) Option {
	return func(r *Registry) {
		r.initState = fn
	}
}

// WithArtifactKey overrides DefaultArtifactKey.
func WithArtifactKey(key string) Option {
	return func(r *Registry) {
		if key != "" {
			r.artifactKey = key
		}
	}
}

// WithEmitterOptions configures every session emitter.
func WithEmitterOptions(opts ...events.Option) Option {
	return func(r *Registry) {
		r.emitterOpts = append(r.emitterOpts, opts...)
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions:    make(map[string]*Session),
		locks:       make(map[string]*lockEntry),
		lockTTL:     DefaultLockTTL,
		logger:      logging.NewNop(), // Default to no-op
		newID:       uuid.NewString,
		now:         time.Now,
		initState:   func() map[string]any { return map[string]any{} },
		artifactKey: DefaultArtifactKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the session for id, creating it if needed. An empty
// id always creates a session with a fresh id; an unknown id is honoured.
func (r *Registry) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id != "" {
		s, err := r.Get(ctx, id)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
	} else {
		id = r.newID()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	if s, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		return s, nil
	}
	s := newSession(id, r.now, r.initState(), r.artifactKey, r.emitterOpts)
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Debug("session created", "session_id", id)
	if err := r.Checkpoint(ctx, s); err != nil {
		r.logger.Warn("failed to persist new session", "session_id", id, "err", err)
	}
	return s, nil
}

// Get returns the session for id, restoring it from the snapshot store on a
// miss. Returns domain.ErrSessionNotFound if it exists nowhere.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrRegistryClosed
	}
	if ok {
		return s, nil
	}
	if r.snapshots == nil {
		return nil, domain.ErrSessionNotFound
	}

	snap, err := r.snapshots.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		return existing, nil
	}
	s = restore(snap, r.now, r.artifactKey, r.emitterOpts)
	r.sessions[id] = s
	r.logger.Debug("session restored", "session_id", id, "status", s.status)
	return s, nil
}

// Delete removes the session everywhere. It reports whether it existed.
func (r *Registry) Delete(ctx context.Context, id string) bool {
	existed := false
	if s, err := r.Get(ctx, id); err == nil {
		existed = true
		s.markDeleted()
	}

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	if r.snapshots != nil {
		if err := r.snapshots.Delete(ctx, id); err != nil {
			r.logger.Warn("failed to delete session snapshot", "session_id", id, "err", err)
		}
	}
	return existed
}

// List returns summaries of all live sessions, oldest first.
func (r *Registry) List() []domain.SessionSummary {
	r.mu.RLock()
	out := make([]domain.SessionSummary, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Summary())
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.SessionSummary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Restore loads every persisted session into memory. It returns how many
// were restored.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	if r.snapshots == nil {
		return 0, nil
	}
	ids, err := r.snapshots.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list session snapshots: %w", err)
	}
	n := 0
	for _, id := range ids {
		if _, err := r.Get(ctx, id); err != nil {
			r.logger.Warn("skipping unreadable session snapshot", "session_id", id, "err", err)
			continue
		}
		n++
	}
	return n, nil
}

// Checkpoint persists the session if a snapshot store is configured.
// Deleted sessions are never written back.
func (r *Registry) Checkpoint(ctx context.Context, s *Session) error {
	if r.snapshots == nil || s.Deleted() {
		return nil
	}
	if err := r.snapshots.Save(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	// Delete may have run between the check and the save.
	if s.Deleted() {
		if err := r.snapshots.Delete(ctx, s.ID()); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to drop snapshot of deleted session: %w", err)
		}
	}
	return nil
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (r *Registry) acquire(sessionID string) *lockEntry {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	entry, exists := r.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		r.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (r *Registry) release(sessionID string) {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	entry, exists := r.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(r.locks, sessionID)
	}
}

// WithLock executes fn while holding the run lock for the session, both
// in-process and, if configured, across replicas.
func (r *Registry) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := r.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		r.release(sessionID)
	}()

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, sessionID, r.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Close checkpoints every session and rejects further use.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := r.Checkpoint(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
