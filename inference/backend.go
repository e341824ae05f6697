// Package inference declares the contract the executor calls into to
// produce one assistant turn: a system prompt, tool definitions, and
// history in, content blocks and a stop reason out (§6 "Inference backend
// (consumed)").
package inference

import "context"

// ToolDef is the JSON-Schema-shaped tool declaration sent to the backend.
type ToolDef struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// StopReason mirrors the backend's three possible stop conditions.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// Request is the `infer({ system, tools, history, user })` input (§6).
type Request struct {
	System  string
	Tools   []ToolDef
	History []HistoryMessage
	User    string
}

// HistoryMessage is one turn of backend-facing history: a role and its
// textual/tool content, already flattened from internal charter.Message
// blocks by the caller.
type HistoryMessage struct {
	Role    string
	Content []ContentBlock
}

// ContentBlock mirrors the backend's content block kinds: text, tool_use,
// tool_result, and thinking.
type ContentBlock struct {
	Type      string // "text" | "tool_use" | "tool_result" | "thinking"
	Text      string
	ID        string
	Name      string
	Input     map[string]any
	ToolUseID string
	Result    any
	IsError   bool
}

// Response is the `{ content, stop_reason }` backend output (§6).
type Response struct {
	Content    []ContentBlock
	StopReason StopReason
}

// Backend is the inference driver contract the executor package calls.
// Implementations wrap a concrete provider SDK (see inference/anthropic).
type Backend interface {
	Infer(ctx context.Context, req Request) (Response, error)
}
