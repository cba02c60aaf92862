package model

import (
	"context"
	"sync"

	"github.com/skylightai/skylight/core"
)

// Step is one scripted model turn: either a set of function calls the model
// "decides" to make, or a text reply streamed in chunks.
type Step struct {
	Text   string              // Reply text (streamed rune-chunked when Stream requested)
	Calls  []core.FunctionCall // Function calls to request instead of replying
	Err    error               // Fail this turn with a generation error
	Chunks int                 // Approximate chunk size for streamed text (default 8 runes)
}

// ScriptedModel is a deterministic in-memory Model for tests. Each Generate
// invocation consumes the next scripted Step in order, making multi-turn
// tool-call loops reproducible without a live provider. Ambiguity handling
// ("ask the user to clarify") is exercised by scripting a plain text step.
type ScriptedModel struct {
	mu    sync.Mutex
	steps []Step
	calls [][]Request // record of received requests per Generate call
}

// NewScriptedModel constructs a ScriptedModel that will play back the given
// steps in order. Generating past the end of the script yields an empty
// final response.
func NewScriptedModel(steps ...Step) *ScriptedModel {
	return &ScriptedModel{steps: steps}
}

// Requests returns the recorded request of each Generate call, letting tests
// assert on folded-in tool results.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c[0])
	}
	return out
}

// Info implements Model.
func (m *ScriptedModel) Info() Info {
	return Info{Name: "scripted", Provider: "scripted", SupportsTools: true}
}

// Generate implements Model; plays back the next scripted step.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	var step Step
	if len(m.steps) > 0 {
		step = m.steps[0]
		m.steps = m.steps[1:]
	}
	m.calls = append(m.calls, []Request{req})
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if step.Err != nil {
			errCh <- step.Err
			return
		}

		if len(step.Calls) > 0 {
			parts := make([]core.Part, 0, len(step.Calls))
			for _, fc := range step.Calls {
				parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
			}
			select {
			case <-ctx.Done():
			case respCh <- Response{
				Content:      core.Content{Role: "assistant", Parts: parts},
				FinishReason: "tool_calls",
			}:
			}
			return
		}

		if req.Stream && step.Text != "" {
			size := step.Chunks
			if size <= 0 {
				size = 8
			}
			runes := []rune(step.Text)
			for i := 0; i < len(runes); i += size {
				end := i + size
				if end > len(runes) {
					end = len(runes)
				}
				select {
				case <-ctx.Done():
					return
				case respCh <- Response{
					Partial: true,
					Content: core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: string(runes[i:end])}}},
				}:
				}
			}
		}

		final := core.Content{Role: "assistant"}
		if step.Text != "" {
			final.Parts = []core.Part{core.TextPart{Text: step.Text}}
		}
		select {
		case <-ctx.Done():
		case respCh <- Response{Content: final, FinishReason: "stop"}:
		}
	}()

	return respCh, errCh
}
