package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skylightai/skylight/core"
	"github.com/skylightai/skylight/logging"
	"github.com/skylightai/skylight/model"
	"github.com/skylightai/skylight/tool"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Instruction is the system instruction given to the model each turn.
	Instruction string
	// MaxModelCalls limits model invocations per turn, bounding runaway
	// tool-call loops.
	MaxModelCalls int
	// EventBufferSize sets channel buffering for emitted events. A slow
	// consumer stalls the producer once the buffer fills.
	EventBufferSize int
	// ToolTimeout bounds each tool call.
	ToolTimeout time.Duration
	// OnContent is invoked for every content block folded into the model
	// context during the turn (assistant tool calls, tool responses, final
	// assistant text). Callers use it to persist conversation history.
	OnContent func(core.Content)
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Orchestrator runs one user turn at a time: model decision, sequential tool
// execution, result folding, streamed response. It holds no per-turn state
// between Run invocations and is safe for concurrent turns. Construct once
// per process and reuse across turns.
type Orchestrator struct {
	name          string
	model         model.Model
	registry      *tool.Registry
	executor      *tool.Executor
	instruction   string
	maxModelCalls int
	bufferSize    int
	onContent     func(core.Content)
	logger        logging.Logger
}

// New constructs an Orchestrator over the given model and tool registry.
func New(name string, m model.Model, registry *tool.Registry, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Instruction:     DefaultInstruction,
		MaxModelCalls:   10,
		EventBufferSize: 100,
		ToolTimeout:     15 * time.Second,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	executor := tool.NewExecutor(registry, func(o *tool.ExecutorOptions) {
		o.Timeout = opts.ToolTimeout
		o.Logger = opts.Logger
	})

	return &Orchestrator{
		name:          name,
		model:         m,
		registry:      registry,
		executor:      executor,
		instruction:   opts.Instruction,
		maxModelCalls: opts.MaxModelCalls,
		bufferSize:    opts.EventBufferSize,
		onContent:     opts.OnContent,
		logger:        opts.Logger,
	}
}

// Name returns the orchestrator's agent name.
func (o *Orchestrator) Name() string { return o.name }

// RunOptions holds per-turn overrides passed to Run().
type RunOptions struct {
	// OnContent is invoked for every content block folded into the model
	// context during this turn, in addition to any construction-time
	// recorder. Callers use it to persist per-session history.
	OnContent func(core.Content)
}

// Run starts one turn over the given history (which must already include the
// new user message) and returns the event stream plus a terminal error
// channel. Both channels close when the turn completes. Cancelling ctx halts
// further emission; any in-flight tool call surfaces a terminal cancelled
// error event rather than remaining pending.
func (o *Orchestrator) Run(ctx context.Context, history []core.Content, optFns ...func(o *RunOptions)) (<-chan core.Event, <-chan error) {
	var runOpts RunOptions
	for _, fn := range optFns {
		fn(&runOpts)
	}

	events := make(chan core.Event, o.bufferSize)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)
		o.runTurn(ctx, history, runOpts.OnContent, events, errs)
	}()

	return events, errs
}

// runTurn drives the Deciding -> ToolCalling* -> Responding -> Done state
// machine for a single turn.
func (o *Orchestrator) runTurn(ctx context.Context, history []core.Content, onContent func(core.Content), events chan<- core.Event, errs chan<- error) {
	record := func(c core.Content) {
		if o.onContent != nil {
			o.onContent(c)
		}
		if onContent != nil {
			onContent(c)
		}
	}

	messageID := core.NewID()
	contents := append([]core.Content(nil), history...)
	defs := o.registry.Definitions()

	for callNum := 0; callNum < o.maxModelCalls; callNum++ {
		req := model.Request{
			Instructions: o.instruction,
			Contents:     contents,
			Tools:        defs,
			Stream:       true,
		}

		final, streamedText, err := o.consumeGeneration(ctx, messageID, req, events)
		if err != nil {
			o.fail(ctx, events, errs, messageID, "GENERATION_ERROR", err)
			return
		}
		if final == nil {
			// Cancelled mid-generation; stop emitting.
			return
		}

		calls := assignCallIDs(final.Content)
		if len(calls) == 0 {
			// Responding state: flush buffered text if the model produced a
			// single non-partial response, then finish the message.
			if !streamedText && final.Content.Text() != "" {
				if !o.emit(ctx, events, core.TextDeltaEvent{ID: core.NewID(), MessageID: messageID, Text: final.Content.Text()}) {
					return
				}
			}
			if text := final.Content.Text(); text != "" {
				record(core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: text}}})
			}
			o.emit(ctx, events, core.MessageDoneEvent{MessageID: messageID})
			return
		}

		contents = append(contents, final.Content)
		record(final.Content)

		for _, fc := range calls {
			responseContent, terminal := o.invokeTool(ctx, messageID, fc, events, errs)
			if terminal {
				return
			}
			contents = append(contents, responseContent)
			record(responseContent)
		}
	}

	o.fail(ctx, events, errs, messageID, "MODEL_CALL_LIMIT",
		fmt.Errorf("turn exceeded %d model calls", o.maxModelCalls))
}

// consumeGeneration drains one model generation, emitting text deltas for
// partial chunks and returning the final response. A nil final response with
// nil error means the context was cancelled.
func (o *Orchestrator) consumeGeneration(
	ctx context.Context,
	messageID string,
	req model.Request,
	events chan<- core.Event,
) (final *model.Response, streamedText bool, err error) {
	respCh, errCh := o.model.Generate(ctx, req)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return nil, streamedText, nil
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				if text := resp.Content.Text(); text != "" {
					streamedText = true
					if !o.emit(ctx, events, core.TextDeltaEvent{ID: core.NewID(), MessageID: messageID, Text: text}) {
						return nil, streamedText, nil
					}
				}
				continue
			}
			r := resp
			final = &r
		case genErr, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if genErr != nil {
				return nil, streamedText, genErr
			}
		}
	}

	if final == nil {
		return nil, streamedText, fmt.Errorf("model produced no final response")
	}
	return final, streamedText, nil
}

// invokeTool announces, executes and resolves a single tool call. The
// returned content carries the result or error for folding into model
// context. terminal is true when the turn must stop (configuration failure
// or cancellation).
func (o *Orchestrator) invokeTool(
	ctx context.Context,
	messageID string,
	fc core.FunctionCall,
	events chan<- core.Event,
	errs chan<- error,
) (responseContent core.Content, terminal bool) {
	input := decodeInput(fc.Arguments)
	if !o.emit(ctx, events, core.ToolCallEvent{
		MessageID:  messageID,
		ToolCallID: fc.ID,
		ToolName:   fc.Name,
		Input:      input,
	}) {
		return core.Content{}, true
	}

	result, err := o.executor.Execute(ctx, fc)
	if err != nil {
		code := tool.ErrorCode(err)
		errorEv := core.ToolErrorEvent{ToolCallID: fc.ID, Code: code, Message: err.Error()}

		switch code {
		case tool.CodeCancelled:
			// ctx is already done here, so a ctx-aware emit would race the
			// terminal event away. The buffered channel takes it directly.
			o.emitTerminal(events, errorEv)
			return core.Content{}, true
		case tool.CodeConfiguration:
			// Fatal: terminate the stream after the invocation reached a
			// terminal error state.
			o.emit(ctx, events, errorEv)
			o.fail(ctx, events, errs, messageID, code, err)
			return core.Content{}, true
		}

		o.emit(ctx, events, errorEv)

		o.logger.Warn("agent.tool.failed", "agent", o.name, "tool", fc.Name, "code", code, "error", err.Error())
		return toolResponseContent(fc, nil, err), false
	}

	if !o.emit(ctx, events, core.ToolResultEvent{ToolCallID: fc.ID, Output: result}) {
		return core.Content{}, true
	}

	o.logger.Info("agent.tool.executed", "agent", o.name, "tool", fc.Name, "tool_call_id", fc.ID)
	return toolResponseContent(fc, result, nil), false
}

// fail emits a terminal stream error event and reports the error.
func (o *Orchestrator) fail(ctx context.Context, events chan<- core.Event, errs chan<- error, messageID, code string, err error) {
	o.logger.Error("agent.turn.failed", "agent", o.name, "code", code, "error", err.Error())
	o.emit(ctx, events, core.StreamErrorEvent{MessageID: messageID, Code: code, Message: err.Error()})
	select {
	case errs <- err:
	default:
	}
}

// emitTerminal delivers a terminal event after cancellation without blocking.
// Delivery is best effort: if the buffer is full the consumer is gone anyway.
func (o *Orchestrator) emitTerminal(events chan<- core.Event, ev core.Event) {
	select {
	case events <- ev:
	default:
	}
}

// emit delivers an event honoring backpressure and cancellation. Returns
// false when the context ended before delivery.
func (o *Orchestrator) emit(ctx context.Context, events chan<- core.Event, ev core.Event) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- ev:
		return true
	}
}

// assignCallIDs fills in correlation ids for function call parts the
// provider left blank, mutating the content in place so the folded context
// and the emitted events agree on ids. Returns the normalized calls.
func assignCallIDs(c core.Content) []core.FunctionCall {
	var calls []core.FunctionCall
	for i, p := range c.Parts {
		fcp, ok := p.(core.FunctionCallPart)
		if !ok {
			continue
		}
		if fcp.FunctionCall.ID == "" {
			fcp.FunctionCall.ID = core.NewID()
			c.Parts[i] = fcp
		}
		calls = append(calls, fcp.FunctionCall)
	}
	return calls
}

// toolResponseContent wraps a tool outcome as a tool-role content block.
func toolResponseContent(fc core.FunctionCall, result any, err error) core.Content {
	fr := core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	return core.Content{Role: "tool", Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: fr}}}
}

// decodeInput parses serialized tool arguments for event consumers; a
// malformed payload degrades to an empty input map (the executor will fail
// validation loudly).
func decodeInput(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil || input == nil {
		return map[string]any{}
	}
	return input
}
