package executor

import (
	"context"
	"fmt"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/inference"
)

// Options configures the standard Executor. Empty for now; reserved for
// provider-agnostic tuning (retry policy, timeouts) that doesn't belong on
// inference.Backend itself.
type Options struct{}

// Executor is the standard charter.Executor: it builds a system prompt,
// gathers the tool definitions visible to the current node, calls an
// inference.Backend, and translates the response into a charter.Message and
// a stop-derived yield reason (§4.6). It does not dispatch tool calls
// itself — ExecutorOutput.Messages carries any tool_use blocks back to the
// caller, which owns the live instance tree and runs the tool pipeline
// against it.
type Executor struct {
	backend inference.Backend
	opts    Options
}

// New builds an Executor backed by the given inference.Backend.
func New(backend inference.Backend, opts Options) (*Executor, error) {
	if backend == nil {
		return nil, fmt.Errorf("executor: inference backend is required")
	}
	return &Executor{backend: backend, opts: opts}, nil
}

// Run implements charter.Executor (§4.6):
//  1. build the system prompt (charter-supplied PromptBuilder, or the
//     default builder);
//  2. gather tool definitions by resolver priority;
//  3. convert history + user input to the backend's request shape;
//  4. call the inference backend;
//  5. translate the response into a Message and a yield reason.
func (e *Executor) Run(ctx context.Context, ch *charter.Charter, in charter.ExecutorInput) (charter.ExecutorOutput, error) {
	systemPrompt := e.systemPrompt(ch, in)
	tools := collectToolDefs(ch, in)
	history := encodeHistory(in.History)

	req := inference.Request{
		System:  systemPrompt,
		Tools:   tools,
		History: history,
		User:    in.UserInput,
	}

	resp, err := e.backend.Infer(ctx, req)
	if err != nil {
		return charter.ExecutorOutput{}, fmt.Errorf("executor: inference call failed: %w", err)
	}

	return e.translate(in, resp), nil
}

func (e *Executor) systemPrompt(ch *charter.Charter, in charter.ExecutorInput) string {
	if ch.PromptBuilder != nil {
		return ch.PromptBuilder(in)
	}
	return buildSystemPrompt(in)
}

// translate maps an inference.Response into ExecutorOutput, short-circuiting
// on end_turn/max_tokens (§4.6 step 7) and otherwise surfacing the raw
// tool-use blocks for the caller's tool pipeline to dispatch.
func (e *Executor) translate(in charter.ExecutorInput, resp inference.Response) charter.ExecutorOutput {
	var blocks []charter.Block
	var text string

	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			text += b.Text
			blocks = append(blocks, charter.TextBlock{Text: b.Text})
		case "thinking":
			blocks = append(blocks, charter.ThinkingBlock{Text: b.Text})
		case "tool_use":
			blocks = append(blocks, charter.ToolUseBlock{ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}

	msg := charter.Message{
		Role:   charter.RoleAssistant,
		Blocks: blocks,
		Source: charter.MessageSource{InstanceID: in.InstanceID},
	}

	out := charter.ExecutorOutput{
		ResponseText: text,
		Messages:     []charter.Message{msg},
	}

	switch resp.StopReason {
	case inference.StopEndTurn:
		out.YieldReason = charter.YieldEndTurn
	case inference.StopMaxTokens:
		out.YieldReason = charter.YieldMaxTokens
	default:
		out.YieldReason = charter.YieldToolUse
	}

	return out
}

// encodeHistory flattens internal charter.Message history into the
// inference backend's role+content-block shape, dropping internal
// InstanceBlock/OutputBlock events the backend never sees.
func encodeHistory(history []charter.Message) []inference.HistoryMessage {
	out := make([]inference.HistoryMessage, 0, len(history))
	for _, m := range history {
		role := backendRole(m.Role)
		if role == "" {
			continue
		}
		var content []inference.ContentBlock
		for _, b := range m.Blocks {
			switch blk := b.(type) {
			case charter.TextBlock:
				content = append(content, inference.ContentBlock{Type: "text", Text: blk.Text})
			case charter.ThinkingBlock:
				content = append(content, inference.ContentBlock{Type: "thinking", Text: blk.Text})
			case charter.ToolUseBlock:
				content = append(content, inference.ContentBlock{Type: "tool_use", ID: blk.ID, Name: blk.Name, Input: blk.Input})
			case charter.ToolResultBlock:
				content = append(content, inference.ContentBlock{
					Type:      "tool_result",
					ToolUseID: blk.ToolUseID,
					Result:    blk.Content,
					IsError:   blk.IsError,
				})
			}
		}
		if len(content) == 0 {
			continue
		}
		out = append(out, inference.HistoryMessage{Role: role, Content: content})
	}
	return out
}

func backendRole(r charter.Role) string {
	switch r {
	case charter.RoleUser:
		return "user"
	case charter.RoleAssistant:
		return "assistant"
	default:
		return ""
	}
}
