package flow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/flow"
)

// flakyNode fails Exec a fixed number of times before succeeding.
type flakyNode struct {
	flow.Base
	failures int
	calls    int
	trace    *[]string
}

func (n *flakyNode) Exec(ctx context.Context, _ any) (any, error) {
	n.calls++
	if n.calls <= n.failures {
		*n.trace = append(*n.trace, "B(fail)")
		return nil, errors.New("not yet")
	}
	*n.trace = append(*n.trace, "B(success)")
	return "ok", nil
}

func (n *flakyNode) Post(ctx context.Context, _ *flow.Store, _, result any) (string, error) {
	if result == "ok" {
		return "done", nil
	}
	return "retry", nil
}

func tracer(trace *[]string, name string) *flow.Vertex {
	return flow.NewNode(name, flow.Funcs{
		ExecFn: func(context.Context, any) (any, error) {
			*trace = append(*trace, name)
			return nil, nil
		},
	})
}

func TestFlow_RetryScenario(t *testing.T) {
	var trace []string
	g := flow.NewGraph()
	require.NoError(t, g.Add(tracer(&trace, "A")))
	require.NoError(t, g.Add(flow.NewNode("B", &flakyNode{failures: 2, trace: &trace}, flow.WithRetries(2, 0))))
	require.NoError(t, g.Add(tracer(&trace, "C")))
	require.NoError(t, g.Connect("A", flow.DefaultAction, "B"))
	require.NoError(t, g.Connect("B", "retry", "A"))
	require.NoError(t, g.Connect("B", "done", "C"))

	var retries []int
	f, err := flow.New(g, flow.WithHooks(domain.LifecycleHooks{
		OnNodeRetry: func(_ context.Context, e *domain.NodeEvent) {
			retries = append(retries, e.Attempt)
		},
	}))
	require.NoError(t, err)

	res, err := f.Run(context.Background(), flow.NewStore(nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B(fail)", "B(fail)", "B(success)", "C"}, trace)
	assert.Equal(t, []string{"A", "B", "C"}, res.Visited)
	assert.Equal(t, "C", res.LastNode)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestFlow_RetriesExhaustedAborts(t *testing.T) {
	var trace []string
	g := flow.NewGraph()
	require.NoError(t, g.Add(flow.NewNode("B", &flakyNode{failures: 5, trace: &trace}, flow.WithRetries(2, time.Millisecond))))
	require.NoError(t, g.Add(tracer(&trace, "C")))
	require.NoError(t, g.Connect("B", "done", "C"))

	f, err := flow.New(g)
	require.NoError(t, err)

	_, err = f.Run(context.Background(), flow.NewStore(nil))
	var nodeErr *domain.NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "B", nodeErr.Node)
	assert.Equal(t, 3, nodeErr.Attempts)
	assert.Len(t, trace, 3)
}

func TestFlow_FallbackReplacesFailure(t *testing.T) {
	g := flow.NewGraph()
	var posted any
	require.NoError(t, g.Add(flow.NewNode("n", flow.Funcs{
		ExecFn: func(context.Context, any) (any, error) { return nil, errors.New("down") },
		FallbackFn: func(_ context.Context, _ any, err error) (any, error) {
			return "degraded: " + err.Error(), nil
		},
		PostFn: func(_ context.Context, _ *flow.Store, _, result any) (string, error) {
			posted = result
			return "", nil
		},
	}, flow.WithRetries(1, 0))))

	f, err := flow.New(g)
	require.NoError(t, err)
	_, err = f.Run(context.Background(), flow.NewStore(nil))
	require.NoError(t, err)
	assert.Equal(t, "degraded: down", posted)
}

func TestFlow_PostErrorIsWrapped(t *testing.T) {
	g := flow.NewGraph()
	require.NoError(t, g.Add(flow.NewNode("n", flow.Funcs{
		PostFn: func(context.Context, *flow.Store, any, any) (string, error) {
			return "", errors.New("bad post")
		},
	})))
	f, err := flow.New(g)
	require.NoError(t, err)

	_, err = f.Run(context.Background(), flow.NewStore(nil))
	var nodeErr *domain.NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	assert.Contains(t, err.Error(), "bad post")
}

func TestFlow_LoopTerminatesOnRoundCounter(t *testing.T) {
	g := flow.NewGraph()
	guard := flow.Funcs{
		PostFn: func(_ context.Context, s *flow.Store, _, _ any) (string, error) {
			// the "always wants more" condition is bounded by the counter
			if s.Int("round") < s.Int("max_rounds") {
				return "again", nil
			}
			return "stop", nil
		},
	}
	bump := flow.Funcs{
		PostFn: func(_ context.Context, s *flow.Store, _, _ any) (string, error) {
			s.Incr("round", 1)
			return "", nil
		},
	}
	require.NoError(t, g.Add(flow.NewNode("guard", guard)))
	require.NoError(t, g.Add(flow.NewNode("bump", bump)))
	require.NoError(t, g.Connect("guard", "again", "bump"))
	require.NoError(t, g.Connect("bump", "", "guard"))

	f, err := flow.New(g)
	require.NoError(t, err)

	store := flow.NewStore(map[string]any{"round": 0, "max_rounds": 5})
	res, err := f.Run(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 5, store.Int("round"))
	assert.Equal(t, "stop", res.LastAction)
	assert.Len(t, res.Visited, 11)
}

type squareBatch struct {
	flow.BatchBase
	delay  func(i int) time.Duration
	active atomic.Int32
	peak   atomic.Int32
	out    []any
}

func (b *squareBatch) Prep(context.Context, *flow.Store) ([]any, error) {
	items := make([]any, 8)
	for i := range items {
		items[i] = i
	}
	return items, nil
}

func (b *squareBatch) Exec(ctx context.Context, item any) (any, error) {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	i := item.(int)
	if b.delay != nil {
		time.Sleep(b.delay(i))
	}
	return i * i, nil
}

func (b *squareBatch) Post(_ context.Context, _ *flow.Store, _, results []any) (string, error) {
	b.out = results
	return "", nil
}

func runBatch(t *testing.T, b *squareBatch, opts ...flow.VertexOption) {
	t.Helper()
	g := flow.NewGraph()
	require.NoError(t, g.Add(flow.NewBatch("squares", b, opts...)))
	f, err := flow.New(g)
	require.NoError(t, err)
	_, err = f.Run(context.Background(), flow.NewStore(nil))
	require.NoError(t, err)
}

func TestBatch_PreservesOrderSequential(t *testing.T) {
	b := &squareBatch{}
	runBatch(t, b)

	assert.Equal(t, []any{0, 1, 4, 9, 16, 25, 36, 49}, b.out)
	assert.Equal(t, int32(1), b.peak.Load())
}

func TestBatch_PreservesOrderParallel(t *testing.T) {
	// later items finish first
	b := &squareBatch{delay: func(i int) time.Duration { return time.Duration(8-i) * 3 * time.Millisecond }}
	runBatch(t, b, flow.WithParallelism(4))

	assert.Equal(t, []any{0, 1, 4, 9, 16, 25, 36, 49}, b.out)
	assert.LessOrEqual(t, b.peak.Load(), int32(4))
}

type failingItemBatch struct {
	flow.BatchBase
	mu       sync.Mutex
	attempts map[int]int
	fallback bool
	out      []any
}

func (b *failingItemBatch) Prep(context.Context, *flow.Store) ([]any, error) {
	return []any{1, 2, 3}, nil
}

func (b *failingItemBatch) Exec(_ context.Context, item any) (any, error) {
	b.mu.Lock()
	b.attempts[item.(int)]++
	b.mu.Unlock()
	if item.(int) == 2 {
		return nil, fmt.Errorf("item %d broken", item)
	}
	return item, nil
}

func (b *failingItemBatch) ExecFallback(_ context.Context, item any, err error) (any, error) {
	if !b.fallback {
		return nil, err
	}
	return -1, nil
}

func (b *failingItemBatch) Post(_ context.Context, _ *flow.Store, _, results []any) (string, error) {
	b.out = results
	return "", nil
}

func TestBatch_ItemFailureAbortsWithoutFallback(t *testing.T) {
	b := &failingItemBatch{attempts: map[int]int{}}
	g := flow.NewGraph()
	require.NoError(t, g.Add(flow.NewBatch("items", b, flow.WithRetries(1, 0))))
	f, err := flow.New(g)
	require.NoError(t, err)

	_, err = f.Run(context.Background(), flow.NewStore(nil))
	var nodeErr *domain.NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "items", nodeErr.Node)
	assert.Equal(t, 2, b.attempts[2])
	assert.Nil(t, b.out)
}

func TestBatch_ItemFallback(t *testing.T) {
	b := &failingItemBatch{attempts: map[int]int{}, fallback: true}
	g := flow.NewGraph()
	require.NoError(t, g.Add(flow.NewBatch("items", b)))
	f, err := flow.New(g)
	require.NoError(t, err)

	_, err = f.Run(context.Background(), flow.NewStore(nil))
	require.NoError(t, err)
	assert.Equal(t, []any{1, -1, 3}, b.out)
}

func TestFlow_HooksSeeEveryNode(t *testing.T) {
	g := flow.NewGraph()
	require.NoError(t, g.Add(noop("a")))
	require.NoError(t, g.Add(noop("b")))
	require.NoError(t, g.Connect("a", "", "b"))

	var entered, left []string
	f, err := flow.New(g, flow.WithHooks(domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { entered = append(entered, e.Node) },
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { left = append(left, e.Node+":"+e.Action) },
	}))
	require.NoError(t, err)

	_, err = f.Run(context.Background(), flow.NewStore(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, entered)
	assert.Equal(t, []string{"a:default", "b:default"}, left)
}

func TestFlow_RetryWaitHonorsContext(t *testing.T) {
	var trace []string
	g := flow.NewGraph()
	require.NoError(t, g.Add(flow.NewNode("B", &flakyNode{failures: 5, trace: &trace}, flow.WithRetries(3, time.Hour))))
	f, err := flow.New(g)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Run(ctx, flow.NewStore(nil))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFlow_PanicBecomesNodeError(t *testing.T) {
	g := flow.NewGraph()
	require.NoError(t, g.Add(flow.NewNode("writer", flow.Funcs{
		ExecFn: func(context.Context, any) (any, error) {
			var m map[string]int
			m["x"] = 1
			return nil, nil
		},
	})))
	f, err := flow.New(g)
	require.NoError(t, err)

	res, err := f.Run(context.Background(), flow.NewStore(nil))
	var nodeErr *domain.NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "writer", nodeErr.Node)
	assert.ErrorIs(t, err, domain.ErrPanicked)
	assert.Equal(t, "writer", res.LastNode)
}

type panickingBatch struct {
	flow.BatchBase
}

func (panickingBatch) Prep(context.Context, *flow.Store) ([]any, error) {
	return []any{1, 2, 3}, nil
}

func (panickingBatch) Exec(_ context.Context, item any) (any, error) {
	if item.(int) == 2 {
		panic("item two")
	}
	return item, nil
}

func TestBatch_ParallelPanicBecomesNodeError(t *testing.T) {
	g := flow.NewGraph()
	require.NoError(t, g.Add(flow.NewBatch("items", panickingBatch{}, flow.WithParallelism(3))))
	f, err := flow.New(g)
	require.NoError(t, err)

	_, err = f.Run(context.Background(), flow.NewStore(nil))
	var nodeErr *domain.NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "items", nodeErr.Node)
	assert.ErrorIs(t, err, domain.ErrPanicked)
	assert.Contains(t, err.Error(), "item two")
}
