package core

import "github.com/google/uuid"

// EventKind identifies the wire-level frame type of a streaming event.
type EventKind string

// Wire-level event kinds. These are the values carried in the framed
// transport stream and must stay stable across encoder and decoder.
const (
	KindTextDelta   EventKind = "text-delta"
	KindToolCall    EventKind = "tool-call"
	KindToolResult  EventKind = "tool-result"
	KindToolError   EventKind = "tool-error"
	KindDone        EventKind = "done"
	KindStreamError EventKind = "stream-error"
)

// Event is the primary unit of communication between the orchestrator and
// timeline consumers. Concrete event types implement the unexported isEvent
// marker enabling a closed set; every consumer switch must handle all
// variants. After emission an event is immutable.
type Event interface {
	// Kind returns the wire-level frame type for this event.
	Kind() EventKind
	// EventID returns the stable identifier that makes duplicate delivery
	// detectable by consumers.
	EventID() string

	isEvent()
}

// TextDeltaEvent carries an incremental fragment of the assistant's text
// response. Deltas for one message arrive in generation order with no gaps;
// consumers append them to a single growing text span.
type TextDeltaEvent struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

// Kind implements Event.
func (TextDeltaEvent) Kind() EventKind { return KindTextDelta }

// EventID implements Event.
func (e TextDeltaEvent) EventID() string { return e.ID }

func (TextDeltaEvent) isEvent() {}

// ToolCallEvent announces that the orchestrator decided to invoke a tool.
// ToolCallID is the correlation key for the eventual result; consumers must
// match by this id, never by arrival position.
type ToolCallEvent struct {
	MessageID  string         `json:"message_id"`
	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	Input      map[string]any `json:"input"`
}

// Kind implements Event.
func (ToolCallEvent) Kind() EventKind { return KindToolCall }

// EventID implements Event.
func (e ToolCallEvent) EventID() string { return e.ToolCallID }

func (ToolCallEvent) isEvent() {}

// ToolResultEvent carries the successful output of a previously announced
// tool call.
type ToolResultEvent struct {
	ToolCallID string `json:"tool_call_id"`
	Output     any    `json:"output"`
}

// Kind implements Event.
func (ToolResultEvent) Kind() EventKind { return KindToolResult }

// EventID implements Event.
func (e ToolResultEvent) EventID() string { return e.ToolCallID }

func (ToolResultEvent) isEvent() {}

// ToolErrorEvent carries the failure of a previously announced tool call.
// Cancellation and timeout surface through this event as well; both are
// terminal for the invocation.
type ToolErrorEvent struct {
	ToolCallID string `json:"tool_call_id"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

// Kind implements Event.
func (ToolErrorEvent) Kind() EventKind { return KindToolError }

// EventID implements Event.
func (e ToolErrorEvent) EventID() string { return e.ToolCallID }

func (ToolErrorEvent) isEvent() {}

// MessageDoneEvent marks the assistant message as complete. After this event
// the message is frozen: no further parts are appended for it.
type MessageDoneEvent struct {
	MessageID string `json:"message_id"`
}

// Kind implements Event.
func (MessageDoneEvent) Kind() EventKind { return KindDone }

// EventID implements Event.
func (e MessageDoneEvent) EventID() string { return e.MessageID }

func (MessageDoneEvent) isEvent() {}

// StreamErrorEvent terminates the stream with a turn-level failure, e.g. a
// missing credential or an unrecoverable provider error. It is distinct from
// ToolErrorEvent which is scoped to a single invocation and does not abort
// the turn.
type StreamErrorEvent struct {
	MessageID string `json:"message_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
}

// Kind implements Event.
func (StreamErrorEvent) Kind() EventKind { return KindStreamError }

// EventID implements Event.
func (e StreamErrorEvent) EventID() string { return e.MessageID }

func (StreamErrorEvent) isEvent() {}

// NewID generates a new unique identifier for messages, events and tool
// calls. Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }
