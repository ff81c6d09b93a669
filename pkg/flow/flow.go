package flow

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/pkg/domain"
)

// Flow walks a sealed Graph from its start vertex, following the action each
// vertex returns, until an action has no outgoing edge.
//
// A Flow keeps no state between runs: everything that must survive lives in
// the Store. A pause is a vertex returning an action with no edge after
// recording in the Store that input is required; the next Run starts again
// from the top and earlier vertices short-circuit on facts already present.
type Flow struct {
	graph  *Graph
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	tracer trace.Tracer
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the logger used for run diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithHooks registers lifecycle callbacks. Hooks for batch retries may be
// invoked from several goroutines when parallelism is enabled.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(f *Flow) {
		f.hooks = hooks
	}
}

// WithTracer records one span per vertex execution.
func WithTracer(tracer trace.Tracer) Option {
	return func(f *Flow) {
		if tracer != nil {
			f.tracer = tracer
		}
	}
}

// Result summarizes a completed run.
type Result struct {
	Visited    []string
	LastNode   string
	LastAction string
}

// New validates and seals g and returns a Flow over it.
func New(g *Graph, opts ...Option) (*Flow, error) {
	if g == nil {
		return nil, &domain.GraphConfigurationError{Reason: "nil graph"}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.Seal()

	f := &Flow{
		graph:  g,
		logger: logging.NewNop(),
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Graph returns the graph the flow runs over.
func (f *Flow) Graph() *Graph {
	return f.graph
}

// Run executes the graph against store. It blocks until a vertex returns an
// action with no outgoing edge or an error escapes a vertex, in which case
// the error is a *domain.NodeExecutionError and the run is aborted.
func (f *Flow) Run(ctx context.Context, store *Store) (Result, error) {
	var res Result
	current, ok := f.graph.Vertex(f.graph.Start())
	if !ok {
		return res, &domain.GraphConfigurationError{Reason: "start vertex missing"}
	}

	for current != nil {
		res.Visited = append(res.Visited, current.name)
		res.LastNode = current.name

		action, err := f.step(ctx, current, store)
		if err != nil {
			f.logger.Error("flow aborted", "node", current.name, "error", err)
			return res, err
		}
		res.LastAction = action

		next, ok := f.graph.Next(current.name, action)
		if !ok {
			f.logger.Debug("flow finished", "node", current.name, "action", action, "steps", len(res.Visited))
			return res, nil
		}
		current = next
	}
	return res, nil
}

func (f *Flow) step(ctx context.Context, v *Vertex, store *Store) (string, error) {
	ctx, span := f.tracer.Start(ctx, "flow.node "+v.name, trace.WithAttributes(
		attribute.String("flow.node", v.name),
		attribute.String("flow.kind", string(v.kind)),
	))
	defer span.End()

	started := time.Now()
	f.emit(ctx, f.hooks.OnNodeEnter, &domain.NodeEvent{
		Timestamp: started,
		Type:      domain.EventNodeEnter,
		Node:      v.name,
		Kind:      string(v.kind),
	})

	onRetry := func(attempt int, err error) {
		f.logger.Warn("node attempt failed, retrying", "node", v.name, "attempt", attempt, "error", err)
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
		f.emit(ctx, f.hooks.OnNodeRetry, &domain.NodeEvent{
			Timestamp: time.Now(),
			Type:      domain.EventNodeRetry,
			Node:      v.name,
			Kind:      string(v.kind),
			Attempt:   attempt,
			Err:       err,
		})
	}

	action, err := v.run(ctx, store, onRetry)

	f.emit(ctx, f.hooks.OnNodeLeave, &domain.NodeEvent{
		Timestamp: time.Now(),
		Type:      domain.EventNodeLeave,
		Node:      v.name,
		Kind:      string(v.kind),
		Action:    action,
		Duration:  time.Since(started),
		Err:       err,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("flow.action", action))
	return action, nil
}

func (f *Flow) emit(ctx context.Context, hook func(context.Context, *domain.NodeEvent), ev *domain.NodeEvent) {
	if hook != nil {
		hook(ctx, ev)
	}
}
