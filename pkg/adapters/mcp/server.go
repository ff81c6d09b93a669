// Package mcp exposes the travel planner as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/events"
	"github.com/aretw0/wayfarer/pkg/runner"
)

const graphURI = "wayfarer://graph"

// Chat is the application surface the tools call into.
type Chat interface {
	Send(ctx context.Context, id, message string) (*runner.Reply, error)
	Stream(ctx context.Context, id string) (iter.Seq[events.Event], error)
	Detail(ctx context.Context, id string) (*runner.Detail, error)
	Delete(ctx context.Context, id string) bool
	List() []domain.SessionSummary
}

// SendArgs are the arguments of send_message.
type SendArgs struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// SessionArgs identify a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// SendResult is what send_message returns once the run has settled.
type SendResult struct {
	SessionID string        `json:"session_id" jsonschema_description:"Session to pass on the next message"`
	Status    domain.Status `json:"status" jsonschema_description:"waiting_input, complete or error"`
	Reply     string        `json:"reply" jsonschema_description:"Last assistant message"`
	FinalPlan string        `json:"final_plan,omitempty" jsonschema_description:"Travel guide in markdown, once generated"`
	Events    []string      `json:"events" jsonschema_description:"Progress events observed during the run"`
}

// ListResult wraps the session list.
type ListResult struct {
	Sessions []domain.SessionSummary `json:"sessions"`
}

// DeleteResult reports a deletion.
type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

// Server wraps the chat service and exposes it as an MCP server.
type Server struct {
	chat      Chat
	graph     func() string
	logger    *slog.Logger
	poll      time.Duration
	wait      time.Duration
	mcpServer *server.MCPServer
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGraph exposes render's output as the graph resource.
func WithGraph(render func() string) Option {
	return func(s *Server) {
		s.graph = render
	}
}

// WithWait bounds how long send_message waits for a run to settle and how
// often it checks.
func WithWait(timeout, poll time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.wait = timeout
		}
		if poll > 0 {
			s.poll = poll
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(chat Chat, version string, opts ...Option) *Server {
	s := &Server{
		chat:      chat,
		logger:    logging.NewNop(),
		poll:      100 * time.Millisecond,
		wait:      5 * time.Minute,
		mcpServer: server.NewMCPServer("wayfarer-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a message to the travel planner. Omit session_id to start a new conversation. Waits until the planner asks a question or finishes."),
		mcp.WithString("session_id", mcp.Description("Existing session ID (optional)")),
		mcp.WithString("message", mcp.Required(), mcp.Description("User message")),
		mcp.WithOutputSchema[SendResult](),
	), mcp.NewStructuredToolHandler(s.handleSend))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get a session with its messages, trip details and plan."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[runner.Detail](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List live sessions."),
		mcp.WithOutputSchema[ListResult](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("delete_session",
		mcp.WithDescription("Delete a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[DeleteResult](),
	), mcp.NewStructuredToolHandler(s.handleDelete))
}

func (s *Server) handleSend(ctx context.Context, _ mcp.CallToolRequest, args SendArgs) (SendResult, error) {
	reply, err := s.chat.Send(ctx, args.SessionID, args.Message)
	if err != nil {
		return SendResult{}, err
	}
	logger := s.logger.With("session_id", reply.SessionID)

	ctx, cancel := context.WithTimeout(ctx, s.wait)
	defer cancel()

	// Drain the stream while the run is in flight so events do not pile up.
	streamCtx, stopStream := context.WithCancel(ctx)
	var (
		mu       sync.Mutex
		observed []string
		done     = make(chan struct{})
	)
	go func() {
		defer close(done)
		seq, err := s.chat.Stream(streamCtx, reply.SessionID)
		if err != nil {
			logger.Warn("stream unavailable", "error", err)
			return
		}
		for ev := range seq {
			mu.Lock()
			observed = append(observed, fmt.Sprintf("%s: %s", ev.Kind, ev.Content))
			mu.Unlock()
		}
	}()

	detail, err := s.settled(ctx, reply.SessionID)
	stopStream()
	<-done
	if err != nil {
		return SendResult{}, err
	}

	mu.Lock()
	defer mu.Unlock()
	return SendResult{
		SessionID: detail.ID,
		Status:    detail.Status,
		Reply:     lastAssistant(detail.Messages),
		FinalPlan: detail.FinalPlan,
		Events:    observed,
	}, nil
}

// settled polls until the session leaves processing.
func (s *Server) settled(ctx context.Context, id string) (*runner.Detail, error) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		d, err := s.chat.Detail(ctx, id)
		if err != nil {
			return nil, err
		}
		if d.Status != domain.StatusProcessing {
			return d, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("session %s is still processing: %w", id, ctx.Err())
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Server) handleGet(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (runner.Detail, error) {
	d, err := s.chat.Detail(ctx, args.SessionID)
	if err != nil {
		return runner.Detail{}, err
	}
	return *d, nil
}

func (s *Server) handleList(_ context.Context, _ mcp.CallToolRequest, _ struct{}) (ListResult, error) {
	sessions := s.chat.List()
	if sessions == nil {
		sessions = []domain.SessionSummary{}
	}
	return ListResult{Sessions: sessions}, nil
}

func (s *Server) handleDelete(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (DeleteResult, error) {
	if !s.chat.Delete(ctx, args.SessionID) {
		return DeleteResult{}, domain.ErrSessionNotFound
	}
	return DeleteResult{Deleted: true}, nil
}

func (s *Server) registerResources() {
	if s.graph == nil {
		return
	}
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Planning graph (Mermaid)",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "text/plain",
				Text:     s.graph(),
			},
		}, nil
	})
}

func lastAssistant(msgs []domain.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleAssistant {
			return msgs[i].Content
		}
	}
	return ""
}
