package runner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/internal/travel"
	"github.com/aretw0/wayfarer/internal/workerpool"
	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/events"
	"github.com/aretw0/wayfarer/pkg/flow"
	"github.com/aretw0/wayfarer/pkg/ports"
	"github.com/aretw0/wayfarer/pkg/session"
)

// Messages emitted by the runner itself.
const (
	MsgStarting  = "Starting to plan your trip..."
	MsgResuming  = "Processing your response..."
	MsgPlanReady = "Your travel plan is ready!"
	reviewPrompt = "Are you happy with this plan? Reply 'done' to finish, or tell me what to change."
)

// GraphFactory builds the graph for one run. Nodes report to em.
type GraphFactory func(em *events.Emitter) (*flow.Graph, error)

// Observer is told about every run.
type Observer interface {
	RunStarted()
	RunFinished(status domain.Status, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) RunStarted() {}
func (nopObserver) RunFinished(domain.Status, time.Duration) {}

// Reply acknowledges an accepted message.
type Reply struct {
	SessionID string        `json:"session_id"`
	Status    domain.Status `json:"status"`
	StreamURL string        `json:"stream_url"`
}

// Detail is the full view of one session.
type Detail struct {
	domain.SessionSummary
	Messages  []domain.Message `json:"messages"`
	TripInfo  domain.TripInfo  `json:"trip_info"`
	FinalPlan string           `json:"final_plan"`
}

// Service accepts chat messages and drives the flow for each session on a
// worker pool. Send returns as soon as the run is queued; progress is read
// from Stream.
type Service struct {
	registry *session.Registry
	pool     *workerpool.Pool
	graph    GraphFactory

	archive      ports.TripArchive
	logger       *slog.Logger
	tracer       trace.Tracer
	hooks        domain.LifecycleHooks
	observer     Observer
	runTimeout   time.Duration
	maxInput     int
	streamPrefix string
}

// New creates a Service. The registry and pool are owned by the caller until
// Close, which shuts both down.
func New(registry *session.Registry, pool *workerpool.Pool, graph GraphFactory, opts ...Option) *Service {
	s := &Service{
		registry:     registry,
		pool:         pool,
		graph:        graph,
		logger:       logging.NewNop(),
		tracer:       noop.NewTracerProvider().Tracer("wayfarer/runner"),
		observer:     nopObserver{},
		maxInput:     DefaultMaxInputSize,
		streamPrefix: DefaultStreamPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send records message on the session (creating it when id is empty or
// unknown) and queues a run. It fails with domain.ErrEmptyMessage,
// domain.ErrSessionBusy or domain.ErrPoolSaturated without queuing anything.
func (s *Service) Send(ctx context.Context, id, message string) (*Reply, error) {
	clean, err := SanitizeInput(message, s.maxInput)
	if err != nil {
		return nil, err
	}
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil, domain.ErrEmptyMessage
	}

	sess, err := s.registry.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	prev, err := sess.Begin()
	if err != nil {
		return nil, err
	}

	st := sess.Store()
	prevFlow := st.String(travel.KeyFlowStatus)
	st.Set(travel.KeyPendingInput, clean)
	st.Set(travel.KeyAPIMode, true)
	st.Set(travel.KeyFlowStatus, travel.FlowProcessing)
	if prev == domain.StatusComplete && sess.Artifact() != "" {
		// A message after completion is feedback on the finished plan.
		st.Set(travel.KeyAwaiting, travel.AwaitingFeedback)
	}
	sess.AddMessage(domain.RoleUser, clean)

	first := prev == domain.StatusIdle
	err = s.pool.Submit("run:"+sess.ID(), func(poolCtx context.Context) {
		s.execute(poolCtx, sess, first)
	})
	if err != nil {
		st.Delete(travel.KeyPendingInput)
		st.Set(travel.KeyFlowStatus, prevFlow)
		sess.SetStatus(prev)
		return nil, err
	}

	s.logger.Info("message accepted", "session_id", sess.ID(), "previous_status", prev)
	return &Reply{
		SessionID: sess.ID(),
		Status:    domain.StatusProcessing,
		StreamURL: s.StreamURL(sess.ID()),
	}, nil
}

// StreamURL is the path clients read a session's events from.
func (s *Service) StreamURL(id string) string {
	return fmt.Sprintf("%s/%s/stream", s.streamPrefix, id)
}

// Stream returns the event stream of a session.
func (s *Service) Stream(ctx context.Context, id string) (iter.Seq[events.Event], error) {
	sess, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Emitter().Stream(ctx), nil
}

// Detail returns the full view of a session.
func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	sess, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{
		SessionSummary: sess.Summary(),
		Messages:       sess.Messages(),
		TripInfo:       travel.TripInfo(sess.Store()),
		FinalPlan:      sess.Artifact(),
	}, nil
}

// Delete removes a session. It reports whether the session existed.
func (s *Service) Delete(ctx context.Context, id string) bool {
	return s.registry.Delete(ctx, id)
}

// List returns summaries of all live sessions.
func (s *Service) List() []domain.SessionSummary {
	return s.registry.List()
}

// Close stops accepting runs, waits for the running ones and checkpoints
// every session.
func (s *Service) Close(ctx context.Context) error {
	return errors.Join(s.pool.Close(ctx), s.registry.Close(ctx))
}

// execute runs on a pool worker.
func (s *Service) execute(ctx context.Context, sess *session.Session, first bool) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}
	ctx, span := s.tracer.Start(ctx, "runner.run", trace.WithAttributes(
		attribute.String("session.id", sess.ID()),
		attribute.Bool("session.first_run", first),
	))
	defer span.End()

	logger := s.logger.With("session_id", sess.ID())
	em := sess.Emitter()
	started := time.Now()
	s.observer.RunStarted()

	if first {
		em.Thinking(MsgStarting)
	} else {
		em.Thinking(MsgResuming)
	}

	err := s.registry.WithLock(ctx, sess.ID(), func(ctx context.Context) error {
		return s.run(ctx, sess, em, logger)
	})
	status := s.settle(ctx, sess, em, err, logger)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("session.status", string(status)))

	if cerr := s.registry.Checkpoint(context.WithoutCancel(ctx), sess); cerr != nil {
		logger.Warn("checkpoint failed", "err", cerr)
	}
	s.observer.RunFinished(status, time.Since(started))
}

// run builds the graph and runs it once. Panics outside node code, such as in
// the graph factory, are returned as errors so the session still settles.
func (s *Service) run(ctx context.Context, sess *session.Session, em *events.Emitter, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrPanicked, r)
		}
	}()
	g, err := s.graph(em)
	if err != nil {
		return err
	}
	f, err := flow.New(g,
		flow.WithLogger(logger),
		flow.WithHooks(s.hooks),
		flow.WithTracer(s.tracer),
	)
	if err != nil {
		return err
	}
	res, err := f.Run(ctx, sess.Store())
	if err != nil {
		return err
	}
	logger.Debug("run finished", "last_node", res.LastNode, "action", res.LastAction, "steps", len(res.Visited))
	return nil
}

// settle maps the end of a run onto the session and its event stream.
func (s *Service) settle(ctx context.Context, sess *session.Session, em *events.Emitter, runErr error, logger *slog.Logger) domain.Status {
	st := sess.Store()

	if runErr != nil {
		logger.Error("run failed", "err", runErr)
		st.Set(travel.KeyFlowStatus, travel.FlowError)
		sess.SetStatus(domain.StatusError)
		em.Error("Error: "+runErr.Error(), ErrorType(runErr))
		return domain.StatusError
	}

	if st.String(travel.KeyFlowStatus) == travel.FlowWaitingInput {
		switch st.String(travel.KeyAwaiting) {
		case travel.AwaitingClarification:
			sess.AddMessage(domain.RoleAssistant, strings.Join(st.Strings(travel.KeyClarificationQuestions), "\n"))
		case travel.AwaitingFeedback:
			sess.AddMessage(domain.RoleAssistant, reviewPrompt)
		}
		sess.SetStatus(domain.StatusWaitingInput)
		return domain.StatusWaitingInput
	}

	st.Set(travel.KeyFlowStatus, travel.FlowComplete)
	sess.SetStatus(domain.StatusComplete)
	plan := sess.Artifact()
	if plan != "" && !st.Bool(travel.KeyPlanEmitted) {
		em.Plan(plan, true)
		st.Set(travel.KeyPlanEmitted, true)
		sess.AddMessage(domain.RoleAssistant, plan)
		s.archiveTrip(ctx, sess, logger)
	}
	em.Complete(MsgPlanReady)
	return domain.StatusComplete
}

func (s *Service) archiveTrip(ctx context.Context, sess *session.Session, logger *slog.Logger) {
	if s.archive == nil {
		return
	}
	st := sess.Store()
	trip := domain.Trip{
		SessionID: sess.ID(),
		Info:      travel.TripInfo(st),
		Guide:     sess.Artifact(),
		Revisions: st.Int(travel.KeyRevisions),
		SavedAt:   time.Now().UTC(),
	}
	if err := s.archive.Save(context.WithoutCancel(ctx), trip); err != nil {
		logger.Warn("failed to archive trip", "err", err)
	}
}

// ErrorType classifies a run failure for the error event's metadata.
func ErrorType(err error) string {
	var (
		provider *domain.ProviderError
		collab   *domain.CollaboratorUnavailable
		parse    *domain.ParseError
		config   *domain.GraphConfigurationError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &provider):
		return "provider"
	case errors.As(err, &collab):
		return "collaborator_unavailable"
	case errors.As(err, &parse):
		return "parse"
	case errors.As(err, &config):
		return "configuration"
	case errors.Is(err, domain.ErrPanicked):
		return "panic"
	default:
		return "internal"
	}
}
