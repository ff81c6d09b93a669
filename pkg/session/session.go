package session

import (
	"sync"
	"time"

	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/events"
	"github.com/aretw0/wayfarer/pkg/flow"
)

// Session is one conversation: its message history, its shared Store and
// the Emitter its runs report progress through.
//
// Status transitions are driven by whoever runs the flow; Begin is the gate
// that keeps a second run from starting while one is in flight.
type Session struct {
	id          string
	createdAt   time.Time
	artifactKey string
	now         func() time.Time
	emitterOpts []events.Option

	mu        sync.RWMutex
	updatedAt time.Time
	messages  []domain.Message
	status    domain.Status
	store     *flow.Store
	emitter   *events.Emitter
	deleted   bool
}

func newSession(id string, now func() time.Time, state map[string]any, artifactKey string, emitterOpts []events.Option) *Session {
	ts := now()
	return &Session{
		id:          id,
		createdAt:   ts,
		updatedAt:   ts,
		artifactKey: artifactKey,
		now:         now,
		emitterOpts: emitterOpts,
		status:      domain.StatusIdle,
		store:       flow.NewStore(state),
		emitter:     events.NewEmitter(emitterOpts...),
	}
}

func (s *Session) ID() string { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the time of the last message or status change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Store returns the session's shared state. It is never replaced.
func (s *Session) Store() *flow.Store {
	return s.store
}

// Emitter returns the current event emitter.
func (s *Session) Emitter() *events.Emitter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emitter
}

// AddMessage appends a message and bumps UpdatedAt.
func (s *Session) AddMessage(role, content string) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := domain.Message{Role: role, Content: content, Timestamp: s.now()}
	s.messages = append(s.messages, msg)
	s.updatedAt = msg.Timestamp
	return msg
}

// Messages returns a copy of the history.
func (s *Session) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.messages...)
}

// Status returns the current status.
func (s *Session) Status() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus records a status transition.
func (s *Session) SetStatus(status domain.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.updatedAt = s.now()
}

// Begin marks the session as processing and returns the status it had
// before. It fails with domain.ErrSessionBusy if a run is already in flight.
// If the previous turn closed the emitter, a fresh one is installed so the
// new run has somewhere to report.
func (s *Session) Begin() (domain.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == domain.StatusProcessing {
		return s.status, domain.ErrSessionBusy
	}
	prev := s.status
	s.status = domain.StatusProcessing
	s.updatedAt = s.now()
	if s.emitter.Closed() {
		s.emitter = events.NewEmitter(s.emitterOpts...)
	}
	return prev, nil
}

// Deleted reports whether the session was removed from its registry. A run
// still holding it may finish, but its state is no longer persisted.
func (s *Session) Deleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deleted
}

func (s *Session) markDeleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = true
}

// Artifact returns the final plan, if one has been produced.
func (s *Session) Artifact() string {
	return s.store.String(s.artifactKey)
}

// Summary returns the list view of the session.
func (s *Session) Summary() domain.SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.SessionSummary{
		ID:           s.id,
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
		Status:       s.status,
		MessageCount: len(s.messages),
		HasPlan:      s.store.Has(s.artifactKey),
	}
}

// Snapshot captures the session for persistence.
func (s *Session) Snapshot() *domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &domain.SessionSnapshot{
		ID:        s.id,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
		Status:    s.status,
		Messages:  append([]domain.Message(nil), s.messages...),
		State:     s.store.Snapshot(),
	}
}

// restore rebuilds a session from a snapshot. A run cannot survive a
// restart, so a snapshot taken mid-run comes back as an error.
func restore(snap *domain.SessionSnapshot, now func() time.Time, artifactKey string, emitterOpts []events.Option) *Session {
	s := newSession(snap.ID, now, snap.State, artifactKey, emitterOpts)
	s.createdAt = snap.CreatedAt
	s.updatedAt = snap.UpdatedAt
	s.messages = append([]domain.Message(nil), snap.Messages...)
	s.status = snap.Status
	if s.status == "" {
		s.status = domain.StatusIdle
	}
	if s.status == domain.StatusProcessing {
		s.status = domain.StatusError
	}
	return s
}
