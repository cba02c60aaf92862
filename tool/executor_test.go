package tool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylightai/skylight/core"
)

// stubTool is a registry-compatible tool whose behavior is supplied inline.
type stubTool struct {
	name   string
	params map[string]any
	call   func(ctx context.Context, args map[string]any) (any, error)
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub tool" }

func (s *stubTool) Parameters() map[string]any {
	if s.params != nil {
		return s.params
	}
	return map[string]any{"type": "object"}
}

func (s *stubTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return s.call(ctx, args)
}

func newStubRegistry(t *testing.T, tools ...Tool) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	for _, tl := range tools {
		require.NoError(t, r.Register(tl))
	}
	return r
}

func TestExecutorExecute(t *testing.T) {
	registry := newStubRegistry(t, &stubTool{
		name: "echo",
		call: func(_ context.Context, args map[string]any) (any, error) {
			return args["value"], nil
		},
	})
	exec := NewExecutor(registry)

	result, err := exec.Execute(context.Background(), core.FunctionCall{
		ID:        "call-1",
		Name:      "echo",
		Arguments: `{"value":"hello"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestExecutorAtMostOnce(t *testing.T) {
	invocations := 0
	registry := newStubRegistry(t, &stubTool{
		name: "counter",
		call: func(context.Context, map[string]any) (any, error) {
			invocations++
			return invocations, nil
		},
	})
	exec := NewExecutor(registry)

	call := core.FunctionCall{ID: "call-1", Name: "counter"}

	_, err := exec.Execute(context.Background(), call)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), call)
	require.Error(t, err)
	assert.Equal(t, CodeProtocol, ErrorCode(err))
	assert.Equal(t, 1, invocations)
}

func TestExecutorLedgerEviction(t *testing.T) {
	registry := newStubRegistry(t, &stubTool{
		name: "echo",
		call: func(context.Context, map[string]any) (any, error) { return "ok", nil },
	})
	exec := NewExecutor(registry, func(o *ExecutorOptions) {
		o.LedgerSize = 2
	})

	for _, id := range []string{"call-1", "call-2", "call-3"} {
		_, err := exec.Execute(context.Background(), core.FunctionCall{ID: id, Name: "echo"})
		require.NoError(t, err)
	}

	// call-1 aged out of the window, so its id may run again.
	_, err := exec.Execute(context.Background(), core.FunctionCall{ID: "call-1", Name: "echo"})
	require.NoError(t, err)

	// call-3 is still inside the window.
	_, err = exec.Execute(context.Background(), core.FunctionCall{ID: "call-3", Name: "echo"})
	require.Error(t, err)
	assert.Equal(t, CodeProtocol, ErrorCode(err))
}

func TestExecutorUnknownTool(t *testing.T) {
	exec := NewExecutor(newStubRegistry(t))

	_, err := exec.Execute(context.Background(), core.FunctionCall{ID: "call-1", Name: "nope"})
	require.Error(t, err)
	assert.Equal(t, CodeProtocol, ErrorCode(err))
}

func TestExecutorValidation(t *testing.T) {
	registry := newStubRegistry(t, &stubTool{
		name: "strict",
		params: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{"type": "string"},
			},
			"required": []string{"location"},
		},
		call: func(context.Context, map[string]any) (any, error) {
			t.Fatal("tool must not run on invalid arguments")
			return nil, nil
		},
	})
	exec := NewExecutor(registry)

	_, err := exec.Execute(context.Background(), core.FunctionCall{ID: "call-1", Name: "strict", Arguments: `{}`})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestExecutorMalformedArguments(t *testing.T) {
	registry := newStubRegistry(t, &stubTool{
		name: "echo",
		call: func(context.Context, map[string]any) (any, error) { return nil, nil },
	})
	exec := NewExecutor(registry)

	_, err := exec.Execute(context.Background(), core.FunctionCall{ID: "call-1", Name: "echo", Arguments: `{broken`})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestExecutorTimeout(t *testing.T) {
	registry := newStubRegistry(t, &stubTool{
		name: "slow",
		call: func(ctx context.Context, _ map[string]any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	exec := NewExecutor(registry, func(o *ExecutorOptions) {
		o.Timeout = 20 * time.Millisecond
	})

	_, err := exec.Execute(context.Background(), core.FunctionCall{ID: "call-1", Name: "slow"})
	require.Error(t, err)
	assert.Equal(t, CodeTimeout, ErrorCode(err))
}

func TestExecutorCancellation(t *testing.T) {
	registry := newStubRegistry(t, &stubTool{
		name: "slow",
		call: func(ctx context.Context, _ map[string]any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	exec := NewExecutor(registry)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := exec.Execute(ctx, core.FunctionCall{ID: "call-1", Name: "slow"})
	require.Error(t, err)
	assert.Equal(t, CodeCancelled, ErrorCode(err))
}

func TestExecutorPanicRecovery(t *testing.T) {
	registry := newStubRegistry(t, &stubTool{
		name: "boom",
		call: func(context.Context, map[string]any) (any, error) {
			panic("kaboom")
		},
	})
	exec := NewExecutor(registry)

	_, err := exec.Execute(context.Background(), core.FunctionCall{ID: "call-1", Name: "boom"})
	require.Error(t, err)
	assert.Equal(t, CodeUpstream, ErrorCode(err))
	assert.Contains(t, err.Error(), "kaboom")
}

func TestExecutorWrapsPlainErrors(t *testing.T) {
	registry := newStubRegistry(t, &stubTool{
		name: "flaky",
		call: func(context.Context, map[string]any) (any, error) {
			return nil, assert.AnError
		},
	})
	exec := NewExecutor(registry)

	_, err := exec.Execute(context.Background(), core.FunctionCall{ID: "call-1", Name: "flaky"})
	require.Error(t, err)
	assert.Equal(t, CodeUpstream, ErrorCode(err))
}
