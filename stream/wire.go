package stream

import (
	"encoding/json"
	"fmt"

	"github.com/skylightai/skylight/core"
)

// ProtocolError indicates a malformed or unrecognized frame. It is a defect
// signal, not a user error: surface it loudly in development, drop the frame
// in production.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Reason }

// MarshalFrame serializes one event into its wire frame.
func MarshalFrame(ev core.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Kind(), err)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Kind(), data)), nil
}

// UnmarshalEvent decodes a frame's kind + data payload back into a typed
// event. Unknown kinds yield a *ProtocolError.
func UnmarshalEvent(kind core.EventKind, data []byte) (core.Event, error) {
	switch kind {
	case core.KindTextDelta:
		var ev core.TextDeltaEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, &ProtocolError{Reason: fmt.Sprintf("malformed %s payload: %v", kind, err)}
		}
		return ev, nil
	case core.KindToolCall:
		var ev core.ToolCallEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, &ProtocolError{Reason: fmt.Sprintf("malformed %s payload: %v", kind, err)}
		}
		return ev, nil
	case core.KindToolResult:
		var ev core.ToolResultEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, &ProtocolError{Reason: fmt.Sprintf("malformed %s payload: %v", kind, err)}
		}
		return ev, nil
	case core.KindToolError:
		var ev core.ToolErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, &ProtocolError{Reason: fmt.Sprintf("malformed %s payload: %v", kind, err)}
		}
		return ev, nil
	case core.KindDone:
		var ev core.MessageDoneEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, &ProtocolError{Reason: fmt.Sprintf("malformed %s payload: %v", kind, err)}
		}
		return ev, nil
	case core.KindStreamError:
		var ev core.StreamErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, &ProtocolError{Reason: fmt.Sprintf("malformed %s payload: %v", kind, err)}
		}
		return ev, nil
	default:
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown event kind %q", kind)}
	}
}
