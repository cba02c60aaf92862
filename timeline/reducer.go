package timeline

import (
	"fmt"

	"github.com/skylightai/skylight/core"
	"github.com/skylightai/skylight/logging"
)

// ReducerOptions configures a Reducer.
type ReducerOptions struct {
	// Strict makes protocol defects (orphan tool results, writes to frozen
	// messages) hard errors instead of logged drops. Enable in development
	// and tests.
	Strict bool
	// Logger records dropped events in non-strict mode. Defaults to NoOp.
	Logger logging.Logger
}

// Reducer folds protocol events into timeline State. Reduce is a pure
// function of (state, event); application order is event arrival order and
// replaying an event is a no-op.
type Reducer struct {
	strict bool
	logger logging.Logger
}

// NewReducer constructs a Reducer.
func NewReducer(optFns ...func(o *ReducerOptions)) *Reducer {
	opts := ReducerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Reducer{strict: opts.Strict, logger: opts.Logger}
}

// Reduce applies one event. In non-strict mode a defective event is dropped
// (returning the state unchanged) after logging; in strict mode it returns
// the protocol error.
func (r *Reducer) Reduce(s State, ev core.Event) (State, error) {
	switch e := ev.(type) {
	case core.TextDeltaEvent:
		return r.applyTextDelta(s, e)
	case core.ToolCallEvent:
		return r.applyToolCall(s, e)
	case core.ToolResultEvent:
		return r.resolveInvocation(s, e.ToolCallID, func(inv *ToolInvocationPart) {
			inv.State = StateOutput
			inv.Output = e.Output
		})
	case core.ToolErrorEvent:
		return r.resolveInvocation(s, e.ToolCallID, func(inv *ToolInvocationPart) {
			inv.State = StateError
			inv.Error = e.Message
			inv.ErrorCode = e.Code
		})
	case core.MessageDoneEvent:
		return r.applyDone(s, e)
	case core.StreamErrorEvent:
		return r.applyStreamError(s, e)
	default:
		return r.drop(s, fmt.Sprintf("unhandled event kind %q", ev.Kind()))
	}
}

// applyTextDelta appends to (or creates) the trailing text part of the
// event's assistant message. Every applied delta id is remembered on the
// message, so replayed deltas are suppressed whether they arrive adjacent
// to the original or as part of a retransmitted tail.
func (r *Reducer) applyTextDelta(s State, e core.TextDeltaEvent) (State, error) {
	if e.ID != "" {
		if idx := findMessage(s, e.MessageID); idx >= 0 {
			if _, dup := s.Messages[idx].seenDeltas[e.ID]; dup {
				return s, nil // duplicate delivery
			}
		}
	}

	next, idx := ensureAssistant(s, e.MessageID)
	msg := &next.Messages[idx]
	if msg.Complete {
		return r.drop(s, fmt.Sprintf("text delta for frozen message %s", e.MessageID))
	}

	if e.ID != "" {
		seen := make(map[string]struct{}, len(msg.seenDeltas)+1)
		for id := range msg.seenDeltas {
			seen[id] = struct{}{}
		}
		seen[e.ID] = struct{}{}
		msg.seenDeltas = seen
	}

	parts := append([]Part(nil), msg.Parts...)
	if n := len(parts); n > 0 {
		if tp, ok := parts[n-1].(TextPart); ok {
			tp.Text += e.Text
			parts[n-1] = tp
			msg.Parts = parts
			return next, nil
		}
	}
	msg.Parts = append(parts, TextPart{Text: e.Text})
	return next, nil
}

// applyToolCall appends a new pending invocation part.
func (r *Reducer) applyToolCall(s State, e core.ToolCallEvent) (State, error) {
	if _, _, ok := findInvocation(s, e.ToolCallID); ok {
		return s, nil // duplicate delivery
	}

	next, idx := ensureAssistant(s, e.MessageID)
	msg := &next.Messages[idx]
	if msg.Complete {
		return r.drop(s, fmt.Sprintf("tool call for frozen message %s", e.MessageID))
	}

	msg.Parts = append(append([]Part(nil), msg.Parts...), ToolInvocationPart{
		ToolCallID: e.ToolCallID,
		ToolName:   e.ToolName,
		Input:      e.Input,
		State:      StatePending,
	})
	return next, nil
}

// resolveInvocation transitions the invocation with the given id to a
// terminal state. An orphan id is a defect; an already-terminal invocation
// makes the event a no-op.
func (r *Reducer) resolveInvocation(s State, toolCallID string, apply func(*ToolInvocationPart)) (State, error) {
	msgIdx, partIdx, ok := findInvocation(s, toolCallID)
	if !ok {
		return r.drop(s, fmt.Sprintf("no invocation matches tool call id %s", toolCallID))
	}

	inv := s.Messages[msgIdx].Parts[partIdx].(ToolInvocationPart)
	if inv.State != StatePending {
		return s, nil // terminal transitions happen exactly once
	}

	apply(&inv)

	next := s.clone()
	msg := &next.Messages[msgIdx]
	msg.Parts = append([]Part(nil), msg.Parts...)
	msg.Parts[partIdx] = inv
	return next, nil
}

// applyDone freezes the message. Invocations still pending at this point are
// a producer defect: they are failed rather than left dangling so no stream
// ends with a permanently pending card.
func (r *Reducer) applyDone(s State, e core.MessageDoneEvent) (State, error) {
	idx := findMessage(s, e.MessageID)
	if idx < 0 {
		return r.drop(s, fmt.Sprintf("done for unknown message %s", e.MessageID))
	}
	if s.Messages[idx].Complete {
		return s, nil // duplicate delivery
	}

	next := s.clone()
	msg := &next.Messages[idx]
	msg.Parts = failPending(msg.Parts, "CANCELLED", "invocation unresolved at message completion", r.logger)
	msg.Complete = true
	return next, nil
}

// applyStreamError terminates the turn: the message freezes and every
// still-pending invocation transitions to a terminal error carrying the
// stream failure.
func (r *Reducer) applyStreamError(s State, e core.StreamErrorEvent) (State, error) {
	idx := findMessage(s, e.MessageID)
	if idx < 0 {
		// A turn can fail before any assistant content exists; nothing to fold.
		return s, nil
	}

	next := s.clone()
	msg := &next.Messages[idx]
	msg.Parts = failPending(msg.Parts, e.Code, e.Message, nil)
	msg.Complete = true
	return next, nil
}

// drop handles a defective event per the configured mode.
func (r *Reducer) drop(s State, reason string) (State, error) {
	if r.strict {
		return s, &ProtocolError{Reason: reason}
	}
	r.logger.Warn("timeline.event.dropped", "reason", reason)
	return s, nil
}

// ProtocolError reports a defective event applied to the timeline.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Reason }

// ensureAssistant returns a cloned state and the index of the assistant
// message with the given id, creating it if this is the first event of the
// turn.
func ensureAssistant(s State, messageID string) (State, int) {
	if idx := findMessage(s, messageID); idx >= 0 {
		next := s.clone()
		return next, idx
	}
	next := s.clone()
	next.Messages = append(next.Messages, Message{ID: messageID, Role: RoleAssistant})
	return next, len(next.Messages) - 1
}

// findMessage locates a message by id, searching from the tail since events
// target recent messages.
func findMessage(s State, messageID string) int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

// findInvocation locates the invocation part with the given tool call id.
// Ids are unique across the timeline.
func findInvocation(s State, toolCallID string) (msgIdx, partIdx int, ok bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		for j, p := range s.Messages[i].Parts {
			if inv, isInv := p.(ToolInvocationPart); isInv && inv.ToolCallID == toolCallID {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// failPending transitions still-pending invocation parts to a terminal
// error. The parts slice is copied before mutation.
func failPending(parts []Part, code, message string, logger logging.Logger) []Part {
	out := append([]Part(nil), parts...)
	for i, p := range out {
		inv, ok := p.(ToolInvocationPart)
		if !ok || inv.State != StatePending {
			continue
		}
		if logger != nil {
			logger.Warn("timeline.invocation.unresolved", "tool_call_id", inv.ToolCallID, "tool", inv.ToolName)
		}
		inv.State = StateError
		inv.Error = message
		inv.ErrorCode = code
		out[i] = inv
	}
	return out
}
