package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserText(t *testing.T) {
	c := NewUserText("what's the weather in Paris?")
	assert.Equal(t, "user", c.Role)
	require.Len(t, c.Parts, 1)
	assert.Equal(t, "what's the weather in Paris?", c.Text())
}

func TestContentText(t *testing.T) {
	c := Content{Role: "assistant", Parts: []Part{
		TextPart{Text: "Weather in Paris: "},
		FunctionCallPart{FunctionCall: FunctionCall{Name: "weather"}},
		TextPart{Text: "Clear sky"},
		ImagePart{URL: "https://example.com/poster.jpg"},
	}}
	assert.Equal(t, "Weather in Paris: Clear sky", c.Text())
}

func TestContentFunctionCalls(t *testing.T) {
	c := Content{Role: "assistant", Parts: []Part{
		FunctionCallPart{FunctionCall: FunctionCall{ID: "call-1", Name: "weather"}},
		TextPart{Text: "checking"},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "call-2", Name: "movie"}},
	}}

	calls := c.FunctionCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "weather", calls[0].Name)
	assert.Equal(t, "movie", calls[1].Name)

	assert.Empty(t, Content{}.FunctionCalls())
}

func TestContentFunctionResponses(t *testing.T) {
	c := Content{Role: "tool", Parts: []Part{
		FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "call-1", Name: "weather", Response: "sunny"}},
		FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "call-2", Name: "movie", Error: "not found"}},
	}}

	responses := c.FunctionResponses()
	require.Len(t, responses, 2)
	assert.Equal(t, "sunny", responses[0].Response)
	assert.Equal(t, "not found", responses[1].Error)
}
