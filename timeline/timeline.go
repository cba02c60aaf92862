// Package timeline implements the client-side read model: a pure reducer
// folding the incoming event stream into an ordered list of messages, each
// composed of ordered parts, supporting live in-progress rendering. The
// reducer exclusively owns this state; producers hand over only immutable
// correlation identifiers.
package timeline

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// InvocationState tracks a tool invocation part's lifecycle. Pending is the
// only non-terminal state; output and error are terminal and entered exactly
// once.
type InvocationState string

// Tool invocation states.
const (
	StatePending InvocationState = "pending"
	StateOutput  InvocationState = "output"
	StateError   InvocationState = "error"
)

// Part is one atomic unit of a message's content. Concrete part types
// implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a text span that grows as deltas arrive; renderers must treat
// it as a single accumulating part, never as separate appends.
type TextPart struct {
	Text string
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// ToolInvocationPart records one tool call from announcement through its
// terminal result. Correlation is by ToolCallID, never by position, so
// results may arrive in any order.
type ToolInvocationPart struct {
	ToolCallID string
	ToolName   string
	Input      map[string]any
	State      InvocationState
	Output     any    // Result payload, set when State is StateOutput
	Error      string // Failure reason, set when State is StateError
	ErrorCode  string
}

// isPart implements the Part interface for ToolInvocationPart.
func (ToolInvocationPart) isPart() {}

// ImagePart is a resolved image reference embedded inline. Reserved: no
// event kind produces one today; renderers that lift image URLs (movie
// posters) out of tool outputs target this type instead of inventing an
// ad hoc representation.
type ImagePart struct {
	URL string
}

// isPart implements the Part interface for ImagePart.
func (ImagePart) isPart() {}

// Message is one entry of the conversation timeline. Assistant messages are
// append-only on Parts while streaming and frozen once Complete.
type Message struct {
	ID       string
	Role     Role
	Parts    []Part
	Complete bool

	// seenDeltas holds the ids of text deltas already folded into this
	// message, so a replayed tail (an at-least-once transport resending
	// events) never re-appends text. The reducer copies it on write.
	seenDeltas map[string]struct{}
}

// Pending reports whether the message still holds non-terminal tool
// invocation parts.
func (m Message) Pending() bool {
	for _, p := range m.Parts {
		if inv, ok := p.(ToolInvocationPart); ok && inv.State == StatePending {
			return true
		}
	}
	return false
}

// Text concatenates the message's text spans preserving order.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// State is the reducer's value: the ordered message list. Treat as
// immutable; Reduce returns a new value.
type State struct {
	Messages []Message
}

// WithUserMessage appends a completed user message, starting a new turn.
func (s State) WithUserMessage(id, text string) State {
	next := s.clone()
	next.Messages = append(next.Messages, Message{
		ID:       id,
		Role:     RoleUser,
		Parts:    []Part{TextPart{Text: text}},
		Complete: true,
	})
	return next
}

// clone copies the state with a fresh message slice so appends never alias
// the previous value.
func (s State) clone() State {
	next := s
	next.Messages = append([]Message(nil), s.Messages...)
	return next
}
