package events

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/wayfarer/internal/logging"
)

// DefaultPollInterval bounds how long an idle consumer waits before
// re-checking the queue when no wake-up arrives.
const DefaultPollInterval = 100 * time.Millisecond

// Emitter bridges a synchronous producer (the worker running a flow) and a
// single asynchronous consumer (a network stream).
//
// Emit never blocks: events go to a mutex-guarded queue and a one-slot
// channel wakes the consumer. Once a terminal event (Complete, or Error
// unless marked non-terminal) has been emitted the emitter is closed and
// later events are dropped. Everything queued before closure is delivered
// exactly once, in order.
type Emitter struct {
	mu       sync.Mutex
	queue    []Event
	closed   bool
	finished bool
	reading  bool
	dropped  int

	notify       chan struct{}
	pollInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(e *Emitter) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger used to report dropped events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEmitter creates an open emitter.
func NewEmitter(opts ...Option) *Emitter {
	e := &Emitter{
		notify:       make(chan struct{}, 1),
		pollInterval: DefaultPollInterval,
		now:          time.Now,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Discard returns a closed emitter that drops everything.
func Discard() *Emitter {
	e := NewEmitter()
	e.closed = true
	e.finished = true
	return e
}

// Emit enqueues ev. It reports false if the emitter was already closed.
func (e *Emitter) Emit(ev Event) bool {
	e.mu.Lock()
	if e.closed {
		e.dropped++
		e.mu.Unlock()
		e.logger.Debug("event dropped after close", "type", ev.Kind)
		return false
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now()
	}
	if ev.Metadata == nil {
		ev.Metadata = map[string]any{}
	}
	e.queue = append(e.queue, ev)
	if ev.Terminal() {
		e.closed = true
	}
	e.mu.Unlock()

	e.wake()
	return true
}

func (e *Emitter) wake() {
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// Thinking reports that the model is working.
func (e *Emitter) Thinking(content string) bool {
	return e.Emit(Event{Kind: KindThinking, Content: content})
}

// Question asks the user for more input.
func (e *Emitter) Question(content string, questions []string) bool {
	if questions == nil {
		questions = []string{}
	}
	return e.Emit(Event{Kind: KindQuestion, Content: content, Metadata: map[string]any{MetaQuestions: questions}})
}

// Searching reports a web search in progress.
func (e *Emitter) Searching(content, query string) bool {
	return e.Emit(Event{Kind: KindSearching, Content: content, Metadata: map[string]any{MetaQuery: query}})
}

// Progress reports a completed step.
func (e *Emitter) Progress(content, step string) bool {
	return e.Emit(Event{Kind: KindProgress, Content: content, Metadata: map[string]any{MetaStep: step}})
}

// Plan delivers a partial or final plan.
func (e *Emitter) Plan(content string, final bool) bool {
	return e.Emit(Event{Kind: KindPlan, Content: content, Metadata: map[string]any{MetaIsFinal: final}})
}

// Error reports a failure and closes the emitter.
func (e *Emitter) Error(content, errType string) bool {
	return e.Emit(Event{Kind: KindError, Content: content, Metadata: map[string]any{MetaErrorType: errType}})
}

// Warning reports a recoverable failure without closing the emitter.
func (e *Emitter) Warning(content, errType string) bool {
	return e.Emit(Event{Kind: KindError, Content: content, Metadata: map[string]any{
		MetaErrorType: errType,
		MetaTerminal:  false,
	}})
}

// Complete reports the end of the work and closes the emitter.
func (e *Emitter) Complete(content string) bool {
	if content == "" {
		content = "Flow completed"
	}
	return e.Emit(Event{Kind: KindComplete, Content: content})
}

// Closed reports whether a terminal event has been emitted.
func (e *Emitter) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Finished reports whether the terminal event has been delivered to a consumer.
func (e *Emitter) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished
}

// Pending returns the number of queued, undelivered events.
func (e *Emitter) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Dropped returns how many events were discarded after close.
func (e *Emitter) Dropped() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// Stream returns the consumer side: a lazy, single-pass sequence that ends
// after the terminal event is delivered or ctx is done.
//
// Only one reader may be active; a concurrent second reader, or any reader
// after the terminal event was delivered, sees an empty sequence. A reader
// that stops early leaves undelivered events queued for the next reader.
func (e *Emitter) Stream(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		e.mu.Lock()
		if e.finished || e.reading {
			e.mu.Unlock()
			return
		}
		e.reading = true
		e.mu.Unlock()

		defer func() {
			e.mu.Lock()
			e.reading = false
			e.mu.Unlock()
		}()

		ticker := time.NewTicker(e.pollInterval)
		defer ticker.Stop()

		for {
			if done := e.deliver(yield); done {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-e.notify:
			case <-ticker.C:
			}
		}
	}
}

// Drain removes and returns everything queued without waiting. It respects
// the single-reader rule of Stream and returns nil while a stream is active.
func (e *Emitter) Drain() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished || e.reading || len(e.queue) == 0 {
		return nil
	}
	out := e.queue
	e.queue = nil
	if out[len(out)-1].Terminal() {
		e.finished = true
	}
	return out
}

// deliver drains the queue into yield. It reports true when the stream must end.
func (e *Emitter) deliver(yield func(Event) bool) bool {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return false
		}
		ev := e.queue[0]
		e.queue = e.queue[1:]
		terminal := ev.Terminal()
		if terminal {
			e.finished = true
		}
		e.mu.Unlock()

		if !yield(ev) {
			return true
		}
		if terminal {
			return true
		}
	}
}
