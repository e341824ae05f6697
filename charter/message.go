package charter

import "time"

// Role identifies the speaker of a Message.
type Role string

const (
	// RoleUser marks a message supplied by the end user or an injected resume payload.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the inference backend.
	RoleAssistant Role = "assistant"
	// RoleSystem marks a message carrying system/instruction content.
	RoleSystem Role = "system"
	// RoleCommand marks a message recording a synchronous command invocation.
	RoleCommand Role = "command"
)

// InstanceEventKind discriminates the internal event carried by an InstanceBlock.
type InstanceEventKind string

const (
	// InstanceEventState records a node state change.
	InstanceEventState InstanceEventKind = "state"
	// InstanceEventPackState records a pack state change.
	InstanceEventPackState InstanceEventKind = "packState"
	// InstanceEventTransition records a transition-to outcome.
	InstanceEventTransition InstanceEventKind = "transition"
	// InstanceEventSpawn records a spawn outcome.
	InstanceEventSpawn InstanceEventKind = "spawn"
	// InstanceEventCede records a cede outcome.
	InstanceEventCede InstanceEventKind = "cede"
	// InstanceEventSuspend records a suspend outcome.
	InstanceEventSuspend InstanceEventKind = "suspend"
)

type (
	// Block is a marker interface implemented by every typed content block that
	// can appear in a Message. Concrete implementations capture text, tool
	// use/results, thinking, application output, and internal instance events.
	Block interface {
		isBlock()
	}

	// TextBlock is a plain text content block.
	TextBlock struct {
		Text string
	}

	// ToolUseBlock declares a tool invocation requested by the assistant.
	ToolUseBlock struct {
		ID    string
		Name  string
		Input map[string]any
	}

	// ToolResultBlock carries the outcome of a tool invocation back to the model.
	ToolResultBlock struct {
		ToolUseID string
		Content   any
		IsError   bool
	}

	// ThinkingBlock carries provider-issued reasoning content.
	ThinkingBlock struct {
		Text string
	}

	// OutputBlock carries application-specific structured output, typically the
	// user-visible half of a tool-reply.
	OutputBlock struct {
		Kind    string
		Payload any
	}

	// InstanceBlock carries an internal event applied to the instance tree by
	// the transition handler and machine loop (state, packState, transition,
	// spawn, cede, suspend).
	InstanceBlock struct {
		Kind       InstanceEventKind
		InstanceID string
		Detail     any
	}

	// MessageSource identifies where a message originated.
	MessageSource struct {
		// InstanceID is the instance that produced or owns this message.
		InstanceID string
		// External is true when the message was injected from outside inference
		// (e.g. a resume payload or a directly appended user message).
		External bool
	}

	// Message is one entry in the machine's history: a role plus an ordered
	// list of typed content blocks, with optional source metadata.
	Message struct {
		Role      Role
		Blocks    []Block
		Source    MessageSource
		Metadata  map[string]any
		CreatedAt time.Time
	}
)

func (TextBlock) isBlock()       {}
func (ToolUseBlock) isBlock()    {}
func (ToolResultBlock) isBlock() {}
func (ThinkingBlock) isBlock()  {}
func (OutputBlock) isBlock()    {}
func (InstanceBlock) isBlock()  {}

// NewTextMessage builds a single-block text message for the given role.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Blocks: []Block{TextBlock{Text: text}}}
}

// Text concatenates every TextBlock in the message, ignoring other block kinds.
func (m Message) Text() string {
	var out string
	for _, b := range m.Blocks {
		if t, ok := b.(TextBlock); ok {
			out += t.Text
		}
	}
	return out
}
