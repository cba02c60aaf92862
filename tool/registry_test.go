package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	tl := &stubTool{
		name: "echo",
		call: func(context.Context, map[string]any) (any, error) { return "ok", nil },
	}
	require.NoError(t, r.Register(tl))

	got, ok := r.Get("echo")
	require.True(t, ok)
	assert.Equal(t, tl, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry(nil)
	tl := &stubTool{
		name: "echo",
		call: func(context.Context, map[string]any) (any, error) { return nil, nil },
	}
	require.NoError(t, r.Register(tl))

	err := r.Register(tl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryInvalidSchema(t *testing.T) {
	r := NewRegistry(nil)
	err := r.Register(&stubTool{
		name:   "broken",
		params: map[string]any{"type": 42},
		call:   func(context.Context, map[string]any) (any, error) { return nil, nil },
	})
	require.Error(t, err)
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"weather", "movie", "alerts"} {
		require.NoError(t, r.Register(&stubTool{
			name: name,
			call: func(context.Context, map[string]any) (any, error) { return nil, nil },
		}))
	}
	assert.Equal(t, []string{"alerts", "movie", "weather"}, r.Names())
}

func TestRegistryDefinitions(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(NewWeatherTool()))
	require.NoError(t, r.Register(NewMovieTool("key")))

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "movie", defs[0].Function.Name)
	assert.Equal(t, "weather", defs[1].Function.Name)
	for _, def := range defs {
		assert.Equal(t, "function", def.Type)
		assert.NotEmpty(t, def.Function.Description)
		assert.NotNil(t, def.Function.Parameters)
	}
}

func TestRegistryValidate(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(NewWeatherTool()))

	assert.NoError(t, r.Validate("weather", map[string]any{"location": "Paris"}))

	err := r.Validate("weather", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrorCode(err))

	err = r.Validate("weather", map[string]any{"location": 7})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrorCode(err))

	err = r.Validate("missing", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, CodeProtocol, ErrorCode(err))
}
