package wayfarer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/wayfarer/internal/config"
	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/internal/metrics"
	"github.com/aretw0/wayfarer/internal/presentation/graph"
	"github.com/aretw0/wayfarer/internal/tracing"
	"github.com/aretw0/wayfarer/internal/travel"
	"github.com/aretw0/wayfarer/internal/workerpool"
	api "github.com/aretw0/wayfarer/pkg/adapters/http"
	"github.com/aretw0/wayfarer/pkg/adapters/file"
	"github.com/aretw0/wayfarer/pkg/adapters/llm/gemini"
	"github.com/aretw0/wayfarer/pkg/adapters/llm/openai"
	"github.com/aretw0/wayfarer/pkg/adapters/mcp"
	"github.com/aretw0/wayfarer/pkg/adapters/memory"
	"github.com/aretw0/wayfarer/pkg/adapters/redis"
	"github.com/aretw0/wayfarer/pkg/adapters/search/serper"
	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/events"
	"github.com/aretw0/wayfarer/pkg/flow"
	"github.com/aretw0/wayfarer/pkg/persistence/middleware"
	"github.com/aretw0/wayfarer/pkg/ports"
	"github.com/aretw0/wayfarer/pkg/runner"
	"github.com/aretw0/wayfarer/pkg/session"
)

// App wires configuration into a running planner.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Service  *runner.Service
	Registry *session.Registry

	graph    *flow.Graph
	prom     *prometheus.Registry
	tracer   *tracing.Provider
	closers  []func() error
	deps     travel.Deps
	snapshot ports.SnapshotStore
}

// Option overrides a collaborator that would otherwise come from config.
type Option func(*App)

func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithCompleter replaces the configured LLM provider.
func WithCompleter(c ports.Completer) Option {
	return func(a *App) {
		a.deps.Completer = c
	}
}

// WithSearcher replaces the configured web search. It also serves place
// lookups when it implements ports.PlaceLookup.
func WithSearcher(s ports.Searcher) Option {
	return func(a *App) {
		a.deps.Searcher = s
		if pl, ok := s.(ports.PlaceLookup); ok {
			a.deps.Places = pl
		}
	}
}

// WithSnapshotStore replaces the configured snapshot backend.
func WithSnapshotStore(s ports.SnapshotStore) Option {
	return func(a *App) {
		a.snapshot = s
	}
}

// New builds the application from cfg.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = logging.NewWithFormat(os.Stderr, logging.ParseLevel(cfg.App.LogLevel), logging.Format(cfg.App.LogFormat))
	}
	a.deps.Logger = a.Logger

	a.prom = prometheus.NewRegistry()
	a.prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.prom)

	if err := a.collaborators(m); err != nil {
		return nil, err
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.New(cfg.App.Name, strings.TrimSpace(Version), cfg.Tracing.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to start tracing: %w", err)
		}
		tp.Install()
		a.tracer = tp
	} else {
		a.tracer = tracing.Disabled()
	}

	regOpts, err := a.storage()
	if err != nil {
		return nil, err
	}
	regOpts = append(regOpts,
		session.WithLogger(a.Logger),
		session.WithInitialState(func() map[string]any { return travel.InitialState(cfg.Travel) }),
		session.WithEmitterOptions(events.WithPollInterval(cfg.Runner.PollInterval), events.WithLogger(a.Logger)),
	)
	a.Registry = session.NewRegistry(regOpts...)

	pool := workerpool.New(cfg.Runner.Workers, cfg.Runner.QueueSize, workerpool.WithLogger(a.Logger))
	metrics.RegisterPool(a.prom, pool)
	metrics.RegisterSessions(a.prom, a.Registry.Len)

	a.Service = runner.New(a.Registry, pool, func(em *events.Emitter) (*flow.Graph, error) {
		return travel.NewGraph(cfg.Travel, a.deps, em)
	},
		runner.WithLogger(a.Logger),
		runner.WithArchive(file.NewArchive(cfg.Storage.ArchiveDir)),
		runner.WithRunTimeout(cfg.Runner.RunTimeout),
		runner.WithMaxInputSize(cfg.Runner.MaxInputSize),
		runner.WithHooks(m.Hooks()),
		runner.WithTracer(a.tracer.Tracer("wayfarer/flow")),
		runner.WithObserver(m),
	)

	// A graph without an emitter, kept for rendering.
	a.graph, err = travel.NewGraph(cfg.Travel, a.deps, nil)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// collaborators builds the completion and search clients that options did not supply.
func (a *App) collaborators(m *metrics.Metrics) error {
	cfg := a.Config
	if a.deps.Completer == nil {
		p := cfg.Provider()
		if p.APIKey == "" {
			return &domain.CollaboratorUnavailable{
				Service: cfg.LLM.Server,
				Err:     fmt.Errorf("no API key configured (set %s_API_KEY)", strings.ToUpper(cfg.LLM.Server)),
			}
		}
		switch cfg.LLM.Server {
		case config.ServerGroq:
			a.deps.Completer = openai.New(p.APIKey, p.BaseURL, p.Model,
				openai.WithName(config.ServerGroq),
				openai.WithLogger(a.Logger),
			)
		default:
			a.deps.Completer = gemini.New(p.APIKey,
				gemini.WithBaseURL(p.BaseURL),
				gemini.WithModel(p.Model),
				gemini.WithLogger(a.Logger),
			)
		}
	}

	if a.deps.Searcher == nil {
		if cfg.Search.SerperKey == "" {
			a.Logger.Warn("SERPER_API_KEY is not set; plans will be built without web research")
			a.deps.Searcher = ports.SearcherFunc(func(context.Context, string) []domain.SearchResult { return nil })
			return nil
		}
		client := serper.New(cfg.Search.SerperKey,
			serper.WithBaseURL(cfg.Search.BaseURL),
			serper.WithLocale(cfg.Search.Location, cfg.Search.Country),
			serper.WithLogger(a.Logger),
			serper.WithObserver(m.ObserveSearch),
		)
		a.deps.Searcher = client
		a.deps.Places = client
	}
	return nil
}

// storage selects the snapshot backend and wraps it with the configured middleware.
func (a *App) storage() ([]session.Option, error) {
	var opts []session.Option
	store := a.snapshot
	if store == nil {
		backend, closeFn := openBackend(a.Config.Storage)
		if closeFn != nil {
			a.closers = append(a.closers, closeFn)
		}
		if rs, ok := backend.(*redis.Store); ok {
			lockTTL := a.Config.Runner.RunTimeout + a.Config.Runner.RunTimeout/2
			opts = append(opts, session.WithLocker(redis.NewLocker(rs.Client(), a.Config.Storage.Redis.Prefix), lockTTL))
		}
		store = backend
	}
	wrapped, err := protect(store, a.Config.Storage)
	if err != nil {
		return nil, err
	}
	return append(opts, session.WithSnapshotStore(wrapped)), nil
}

// OpenStore opens the configured snapshot store for offline inspection. The
// returned close function is never nil.
func OpenStore(cfg config.StorageConfig) (ports.SnapshotStore, func() error, error) {
	backend, closeFn := openBackend(cfg)
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	store, err := protect(backend, cfg)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}

func openBackend(cfg config.StorageConfig) (ports.SnapshotStore, func() error) {
	switch cfg.Backend {
	case config.BackendFile:
		return file.New(cfg.Dir), nil
	case config.BackendRedis:
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithTTL(cfg.Redis.TTL),
			redis.WithPrefix(cfg.Redis.Prefix),
		)
		return rs, rs.Close
	default:
		return memory.NewStore(), nil
	}
}

// protect applies PII masking, then encryption.
func protect(store ports.SnapshotStore, cfg config.StorageConfig) (ports.SnapshotStore, error) {
	var mws []middleware.Middleware
	if len(cfg.PIIPatterns) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.PIIPatterns)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern: %w", err)
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		key, err := middleware.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), nil
}

// Restore loads persisted sessions into memory.
func (a *App) Restore(ctx context.Context) (int, error) {
	return a.Registry.Restore(ctx)
}

// Mermaid renders the planning graph, highlighting a session's progress when
// sessionID names a live session.
func (a *App) Mermaid(ctx context.Context, sessionID string) string {
	opts := graph.Options{Inputs: travel.InputNodes}
	if sessionID != "" {
		if sess, err := a.Registry.Get(ctx, sessionID); err == nil {
			visited := sess.Store().Strings(travel.KeyVisited)
			overlay := &graph.GraphOverlay{VisitedNodes: visited}
			if len(visited) > 0 {
				overlay.CurrentNode = visited[len(visited)-1]
			}
			opts.Overlay = overlay
		}
	}
	return graph.GenerateMermaid(a.graph, opts)
}

// MetricsHandler serves the Prometheus registry.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.prom, promhttp.HandlerOpts{Registry: a.prom})
}

// Handler builds the HTTP API.
func (a *App) Handler() (http.Handler, error) {
	opts := []api.Option{
		api.WithLogger(a.Logger),
		api.WithCORSOrigins(a.Config.HTTP.CORSOrigins...),
		api.WithAppInfo(a.Config.App.Name, strings.TrimSpace(Version)),
		api.WithGraph(func() string { return a.Mermaid(context.Background(), "") }),
	}
	if a.Config.Metrics.Enabled {
		opts = append(opts, api.WithMetrics(a.MetricsHandler()))
	}
	return api.NewHandler(a.Service, opts...)
}

// MCP builds the MCP tool server.
func (a *App) MCP() *mcp.Server {
	return mcp.NewServer(a.Service, strings.TrimSpace(Version),
		mcp.WithLogger(a.Logger),
		mcp.WithGraph(func() string { return a.Mermaid(context.Background(), "") }),
		mcp.WithWait(a.Config.Runner.RunTimeout, a.Config.Runner.PollInterval),
	)
}

// Close drains running work, checkpoints sessions and releases backends.
func (a *App) Close(ctx context.Context) error {
	errs := []error{a.Service.Close(ctx), a.tracer.Shutdown(ctx)}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
