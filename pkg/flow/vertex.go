package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/wayfarer/pkg/domain"
)

// Kind identifies the variant a Vertex was built with.
type Kind string

const (
	KindNode  Kind = "node"
	KindBatch Kind = "batch"
)

// Vertex is a named node placed in a Graph. It is created with NewNode or
// NewBatch; the variant is fixed at construction.
type Vertex struct {
	name        string
	kind        Kind
	node        Node
	batch       BatchNode
	maxRetries  int
	wait        time.Duration
	parallelism int
}

// VertexOption configures a Vertex.
type VertexOption func(*Vertex)

// WithRetries sets how many extra Exec attempts are made after a failure and
// the delay between attempts.
func WithRetries(maxRetries int, wait time.Duration) VertexOption {
	return func(v *Vertex) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		v.maxRetries = maxRetries
		v.wait = wait
	}
}

// WithParallelism lets a batch vertex execute up to n items concurrently.
// Results keep the item order. The default of 1 runs items sequentially.
func WithParallelism(n int) VertexOption {
	return func(v *Vertex) {
		if n < 1 {
			n = 1
		}
		v.parallelism = n
	}
}

// NewNode places a single node in a vertex.
func NewNode(name string, n Node, opts ...VertexOption) *Vertex {
	v := &Vertex{name: name, kind: KindNode, node: n, parallelism: 1}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewBatch places a batch node in a vertex.
func NewBatch(name string, n BatchNode, opts ...VertexOption) *Vertex {
	v := &Vertex{name: name, kind: KindBatch, batch: n, parallelism: 1}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Vertex) Name() string { return v.name }
func (v *Vertex) Kind() Kind { return v.kind }
func (v *Vertex) MaxRetries() int { return v.maxRetries }
func (v *Vertex) Wait() time.Duration { return v.wait }
func (v *Vertex) Parallelism() int { return v.parallelism }

func (v *Vertex) validate() error {
	if v.name == "" {
		return &domain.GraphConfigurationError{Reason: "vertex without a name"}
	}
	switch v.kind {
	case KindNode:
		if v.node == nil {
			return &domain.GraphConfigurationError{Node: v.name, Reason: "nil node"}
		}
	case KindBatch:
		if v.batch == nil {
			return &domain.GraphConfigurationError{Node: v.name, Reason: "nil batch node"}
		}
	default:
		return &domain.GraphConfigurationError{Node: v.name, Reason: fmt.Sprintf("unknown kind %q", v.kind)}
	}
	return nil
}

// retryFunc is notified before each retry with the attempt that failed.
type retryFunc func(attempt int, err error)

// run executes the vertex lifecycle and returns the action label. A panic in
// any phase becomes a *domain.NodeExecutionError wrapping domain.ErrPanicked.
func (v *Vertex) run(ctx context.Context, store *Store, onRetry retryFunc) (action string, err error) {
	defer func() {
		if r := recover(); r != nil {
			action, err = "", v.fail(1, panicError(r))
		}
	}()
	if v.kind == KindBatch {
		return v.runBatch(ctx, store, onRetry)
	}

	input, err := v.node.Prep(ctx, store)
	if err != nil {
		return "", v.fail(1, fmt.Errorf("prep: %w", err))
	}

	fb, _ := v.node.(Fallback)
	result, attempts, err := v.execWithRetry(ctx, input, v.node.Exec, fb, onRetry)
	if err != nil {
		return "", v.fail(attempts, err)
	}

	action, err = v.node.Post(ctx, store, input, result)
	if err != nil {
		return "", v.fail(attempts, fmt.Errorf("post: %w", err))
	}
	return normalizeAction(action), nil
}

func (v *Vertex) runBatch(ctx context.Context, store *Store, onRetry retryFunc) (string, error) {
	items, err := v.batch.Prep(ctx, store)
	if err != nil {
		return "", v.fail(1, fmt.Errorf("prep: %w", err))
	}

	fb, _ := v.batch.(Fallback)
	results := make([]any, len(items))

	if v.parallelism <= 1 {
		for i, item := range items {
			res, attempts, err := v.execWithRetry(ctx, item, v.batch.Exec, fb, onRetry)
			if err != nil {
				return "", v.fail(attempts, fmt.Errorf("item %d: %w", i, err))
			}
			results[i] = res
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(v.parallelism)
		for i, item := range items {
			g.Go(func() (err error) {
				// Panics do not cross goroutines; recover here so the run sees an error.
				defer func() {
					if r := recover(); r != nil {
						err = v.fail(1, fmt.Errorf("item %d: %w", i, panicError(r)))
					}
				}()
				res, attempts, err := v.execWithRetry(gctx, item, v.batch.Exec, fb, onRetry)
				if err != nil {
					return v.fail(attempts, fmt.Errorf("item %d: %w", i, err))
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
	}

	action, err := v.batch.Post(ctx, store, items, results)
	if err != nil {
		return "", v.fail(1, fmt.Errorf("post: %w", err))
	}
	return normalizeAction(action), nil
}

// execWithRetry attempts exec up to maxRetries+1 times, then falls back.
func (v *Vertex) execWithRetry(ctx context.Context, input any, exec func(context.Context, any) (any, error), fb Fallback, onRetry retryFunc) (any, int, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= v.maxRetries; attempt++ {
		attempts++
		result, err := exec(ctx, input)
		if err == nil {
			return result, attempts, nil
		}
		lastErr = err
		if attempt == v.maxRetries {
			break
		}
		if onRetry != nil {
			onRetry(attempts, err)
		}
		if err := sleep(ctx, v.wait); err != nil {
			return nil, attempts, errors.Join(lastErr, err)
		}
	}

	if fb != nil {
		result, err := fb.ExecFallback(ctx, input, lastErr)
		if err == nil {
			return result, attempts, nil
		}
		return nil, attempts, err
	}
	return nil, attempts, lastErr
}

func (v *Vertex) fail(attempts int, err error) error {
	var nodeErr *domain.NodeExecutionError
	if errors.As(err, &nodeErr) {
		return err
	}
	return &domain.NodeExecutionError{Node: v.name, Attempts: attempts, Err: err}
}

func panicError(r any) error {
	return fmt.Errorf("%w: %v", domain.ErrPanicked, r)
}

func normalizeAction(action string) string {
	if action == "" {
		return DefaultAction
	}
	return action
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
