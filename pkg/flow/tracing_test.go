package flow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/aretw0/wayfarer/pkg/flow"
)

func TestFlow_TracerRecordsSpanPerNode(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	g := flow.NewGraph()
	require.NoError(t, g.Add(noop("first")))
	require.NoError(t, g.Add(flow.NewNode("second", flow.Funcs{
		ExecFn: func(context.Context, any) (any, error) { return nil, errors.New("nope") },
	})))
	require.NoError(t, g.Connect("first", "", "second"))

	f, err := flow.New(g, flow.WithTracer(provider.Tracer("test")))
	require.NoError(t, err)
	_, err = f.Run(context.Background(), flow.NewStore(nil))
	require.Error(t, err)

	type span struct {
		Name   string
		Status codes.Code
	}
	var got []span
	for _, s := range recorder.Ended() {
		got = append(got, span{Name: s.Name(), Status: s.Status().Code})
	}
	want := []span{
		{Name: "flow.node first", Status: codes.Unset},
		{Name: "flow.node second", Status: codes.Error},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("spans mismatch (-want +got):\n%s", diff)
	}
}
