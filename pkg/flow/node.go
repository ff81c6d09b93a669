package flow

import "context"

// DefaultAction is the edge label used when a node does not discriminate
// between successors. An empty action returned from Post means DefaultAction.
const DefaultAction = "default"

// Node is a unit of work with a three-phase lifecycle.
//
// Prep reads what it needs from the Store, Exec does the work (and may be
// retried), Post writes results back and returns the action label used to
// select the next edge.
type Node interface {
	Prep(ctx context.Context, store *Store) (any, error)
	Exec(ctx context.Context, input any) (any, error)
	Post(ctx context.Context, store *Store, input, result any) (string, error)
}

// BatchNode fans the prepared items out to one Exec call each. Post receives
// the results in the same order as the items.
type BatchNode interface {
	Prep(ctx context.Context, store *Store) ([]any, error)
	Exec(ctx context.Context, item any) (any, error)
	Post(ctx context.Context, store *Store, items, results []any) (string, error)
}

// Fallback is implemented by nodes that can produce a degraded result once
// every Exec attempt has failed. For batch nodes it applies per item.
type Fallback interface {
	ExecFallback(ctx context.Context, input any, err error) (any, error)
}

// Base provides no-op phases for Node implementations to embed.
type Base struct{}

func (Base) Prep(context.Context, *Store) (any, error) { return nil, nil }
func (Base) Exec(context.Context, any) (any, error) { return nil, nil }
func (Base) Post(context.Context, *Store, any, any) (string, error) {
	return DefaultAction, nil
}

// BatchBase provides no-op phases for BatchNode implementations to embed.
type BatchBase struct{}

func (BatchBase) Prep(context.Context, *Store) ([]any, error) { return nil, nil }
func (BatchBase) Exec(context.Context, any) (any, error) { return nil, nil }
func (BatchBase) Post(context.Context, *Store, []any, []any) (string, error) {
	return DefaultAction, nil
}

// Funcs adapts plain functions to the Node interface. Nil phases behave like Base.
type Funcs struct {
	PrepFn     func(ctx context.Context, store *Store) (any, error)
	ExecFn     func(ctx context.Context, input any) (any, error)
	PostFn     func(ctx context.Context, store *Store, input, result any) (string, error)
	FallbackFn func(ctx context.Context, input any, err error) (any, error)
}

func (f Funcs) Prep(ctx context.Context, store *Store) (any, error) {
	if f.PrepFn == nil {
		return nil, nil
	}
	return f.PrepFn(ctx, store)
}

func (f Funcs) Exec(ctx context.Context, input any) (any, error) {
	if f.ExecFn == nil {
		return input, nil
	}
	return f.ExecFn(ctx, input)
}

func (f Funcs) Post(ctx context.Context, store *Store, input, result any) (string, error) {
	if f.PostFn == nil {
		return DefaultAction, nil
	}
	return f.PostFn(ctx, store, input, result)
}

// ExecFallback propagates err when FallbackFn is nil.
func (f Funcs) ExecFallback(ctx context.Context, input any, err error) (any, error) {
	if f.FallbackFn == nil {
		return nil, err
	}
	return f.FallbackFn(ctx, input, err)
}
