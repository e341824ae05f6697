package charter

// Tool is a capability exposed to the inference backend: a name, description,
// input schema, and an execute function. Per §3, a tool may return a plain
// value, a tool-reply (separate user/LLM messages), or a suspend marker —
// ToolResult models all three.
type Tool struct {
	// Name is the tool identifier as advertised to the inference backend. It
	// must be unique within its resolution scope (§4.1).
	Name string
	// Description explains when/why the inference backend should call the tool.
	Description string
	// InputSchema validates the tool call's input payload. Nil means no
	// input is expected.
	InputSchema *Schema
	// Execute runs the tool body.
	Execute ToolExecuteFunc
	// Terminal marks the tool as ending the agent's turn when invoked with
	// no queued transition: the tool pipeline yields end_turn rather than
	// tool_use after processing it (§4.3 "Yield reason").
	Terminal bool
}

type (
	// ToolReply splits a tool's return value into what the LLM sees in its
	// tool-result block and what (if anything) is surfaced to the user as an
	// assistant-role message.
	ToolReply struct {
		// LLMMessage becomes the tool-result content returned to the model.
		LLMMessage any
		// UserMessage is enqueued as an assistant-role block when non-nil.
		// It may be plain text (wrapped in a TextBlock) or an OutputBlock.
		UserMessage Block
	}

	// SuspendRequest pauses the owning instance pending external resume.
	SuspendRequest struct {
		// SuspendID correlates a later resume input to this suspension.
		SuspendID string
		// Reason is a human/LLM-readable explanation for the pause.
		Reason string
		// Metadata carries arbitrary additional context for the pause.
		Metadata map[string]any
	}

	// ToolResult is the tagged return value of Tool.Execute. Exactly one of
	// Reply or Suspend should be set; when neither is set, Value holds a
	// plain JSON-compatible return value.
	ToolResult struct {
		Value   any
		Reply   *ToolReply
		Suspend *SuspendRequest
	}
)

// PlainToolResult wraps a plain value as a ToolResult.
func PlainToolResult(value any) ToolResult {
	return ToolResult{Value: value}
}

// ReplyToolResult wraps a tool-reply as a ToolResult.
func ReplyToolResult(reply ToolReply) ToolResult {
	return ToolResult{Reply: &reply}
}

// SuspendToolResult wraps a suspend request as a ToolResult.
func SuspendToolResult(req SuspendRequest) ToolResult {
	return ToolResult{Suspend: &req}
}
