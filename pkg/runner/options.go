package runner

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/ports"
)

// DefaultStreamPrefix is the route prefix used to build stream URLs.
const DefaultStreamPrefix = "/api/chat"

// Option configures a Service.
type Option func(*Service)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithArchive saves every completed plan.
func WithArchive(archive ports.TripArchive) Option {
	return func(s *Service) {
		s.archive = archive
	}
}

// WithRunTimeout bounds a single run. Zero means no limit.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.runTimeout = d
	}
}

// WithMaxInputSize sets the message size limit in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Service) {
		s.maxInput = n
	}
}

// WithStreamPrefix changes the prefix of the stream URL handed to clients.
func WithStreamPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.streamPrefix = prefix
		}
	}
}

// WithHooks observes node lifecycle events of every run.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithTracer traces runs and the nodes inside them.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithObserver reports run outcomes, typically to metrics.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}
