package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/skylightai/skylight/core"
	"github.com/skylightai/skylight/logging"
)

// ExecutorOptions configures the Executor.
type ExecutorOptions struct {
	// Timeout bounds each tool call. A call exceeding it fails with
	// CodeTimeout instead of blocking the turn. Zero disables the bound.
	Timeout time.Duration
	// LedgerSize bounds how many executed call ids the at-most-once ledger
	// retains; oldest ids are evicted first, so a replay older than the
	// window goes undetected. Zero or negative uses the default.
	LedgerSize int
	// Logger receives execution records. Defaults to NoOp.
	Logger logging.Logger
}

// defaultLedgerSize covers far more calls than any bounded-turn run makes
// while keeping a process-long executor's memory flat.
const defaultLedgerSize = 1024

// Executor runs tool calls against a Registry, enforcing the invocation
// contract: arguments are validated against the tool's compiled schema, each
// call id executes at most once, every call is bounded by the configured
// timeout, and panics surface as errors rather than crashing the turn.
// Safe for concurrent use: each execution is independent.
type Executor struct {
	registry   *Registry
	timeout    time.Duration
	ledgerSize int
	logger     logging.Logger

	mu       sync.Mutex
	executed map[string]struct{}
	order    []string
}

// NewExecutor constructs an Executor over the given registry.
func NewExecutor(registry *Registry, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		Timeout:    15 * time.Second,
		LedgerSize: defaultLedgerSize,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.LedgerSize <= 0 {
		opts.LedgerSize = defaultLedgerSize
	}
	return &Executor{
		registry:   registry,
		timeout:    opts.Timeout,
		ledgerSize: opts.LedgerSize,
		logger:     opts.Logger,
		executed:   make(map[string]struct{}),
	}
}

type callOutcome struct {
	result any
	err    error
}

// Execute runs the tool named by the call, returning its result or a *Error.
// Each FunctionCall.ID is consumed exactly once; a repeated id fails with
// CodeProtocol.
func (e *Executor) Execute(ctx context.Context, call core.FunctionCall) (any, error) {
	if call.ID != "" {
		e.mu.Lock()
		if _, dup := e.executed[call.ID]; dup {
			e.mu.Unlock()
			return nil, NewError(call.Name, CodeProtocol, fmt.Sprintf("tool call %s already executed", call.ID))
		}
		e.executed[call.ID] = struct{}{}
		e.order = append(e.order, call.ID)
		if len(e.order) > e.ledgerSize {
			delete(e.executed, e.order[0])
			e.order = append([]string(nil), e.order[1:]...)
		}
		e.mu.Unlock()
	}

	t, ok := e.registry.Get(call.Name)
	if !ok {
		return nil, NewError(call.Name, CodeProtocol, "unknown tool")
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return nil, &Error{
			Tool:    call.Name,
			Code:    CodeValidation,
			Message: fmt.Sprintf("malformed arguments: %v", err),
		}
	}
	if err := e.registry.Validate(call.Name, args); err != nil {
		return nil, err
	}

	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if e.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	start := time.Now()
	e.logger.Debug("tool.call.start", "tool", call.Name, "tool_call_id", call.ID)

	outCh := make(chan callOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				outCh <- callOutcome{err: NewError(call.Name, CodeUpstream, fmt.Sprintf("tool panicked: %v", r))}
			}
		}()
		result, err := t.Call(callCtx, args)
		outCh <- callOutcome{result: result, err: err}
	}()

	var out callOutcome
	select {
	case <-callCtx.Done():
		out = callOutcome{err: e.ctxError(call.Name, ctx, callCtx)}
	case out = <-outCh:
		if out.err != nil && callCtx.Err() != nil {
			// The tool surfaced the deadline itself; normalize the code.
			out.err = e.ctxError(call.Name, ctx, callCtx)
		}
	}

	e.logger.Info(
		"tool.call.finished",
		"tool", call.Name,
		"tool_call_id", call.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", out.err != nil,
	)

	if out.err != nil {
		if _, ok := out.err.(*Error); ok {
			return nil, out.err
		}
		return nil, &Error{Tool: call.Name, Code: CodeUpstream, Message: out.err.Error()}
	}
	return out.result, nil
}

// ctxError maps context termination to the Cancelled/Timeout taxonomy. A
// cancelled parent means the user stopped the turn; otherwise the per-call
// deadline fired.
func (e *Executor) ctxError(toolName string, parent, callCtx context.Context) *Error {
	if parent.Err() != nil {
		return NewError(toolName, CodeCancelled, "tool call cancelled")
	}
	if callCtx.Err() == context.DeadlineExceeded {
		return NewError(toolName, CodeTimeout, fmt.Sprintf("tool call exceeded %s", e.timeout))
	}
	return NewError(toolName, CodeCancelled, "tool call cancelled")
}

// decodeArguments parses the serialized JSON argument payload. An empty
// payload decodes to an empty argument map.
func decodeArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
