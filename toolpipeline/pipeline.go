// Package toolpipeline executes the tool-use blocks an inference response
// produced: state updates, queued transitions, and ordinary tool calls,
// emitting tool-result and instance messages in the order §4.3 and §5
// require.
package toolpipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
	"github.com/chartrun/machine/resolver"
	"github.com/chartrun/machine/transition"
)

// anthropicServerTools are handled entirely by the inference backend and
// never reach this pipeline's dispatch logic; calls bearing these names are
// skipped without a tool-result (§4.3).
var anthropicServerTools = map[string]bool{
	"computer":       true,
	"text_editor":    true,
	"bash":           true,
	"web_search":     true,
	"code_execution": true,
}

// Input gathers everything Process needs for one batch of tool calls.
type Input struct {
	Charter *charter.Charter
	Machine *instance.Machine
	Leaf    instance.Leaf
	Calls   []charter.ToolUseBlock
	// SourceInstanceID tags every emitted message's Source.InstanceID.
	SourceInstanceID string
}

// Output is what Process produces after applying any queued transition to
// the tree and enqueuing every message onto the machine's queue.
type Output struct {
	YieldReason YieldFold
	CedeContent any
	SuspendInfo *instance.SuspendInfo
}

// YieldFold carries the yield reason computed by Process, already folded
// with any transition-handler override (§4.3 "unless the transition
// handler overrides with cede or suspend").
type YieldFold = charter.YieldReason

type queuedTransitionCall struct {
	name string
	args map[string]any
}

// Process executes in.Calls in order against in.Leaf, mutating node/pack
// state directly, invoking at most one transition, and enqueuing every
// message this batch produces onto in.Machine (§4.3, §5 ordering
// guarantees).
func Process(ctx context.Context, in Input) (Output, error) {
	inst := in.Leaf.Instance

	var (
		toolResults      []charter.ToolResultBlock
		replyBlocks      []charter.Block
		nodeStateChanged bool
		changedPacks     = map[string]bool{}
		transitionQueued bool
		queuedCall       *queuedTransitionCall
		queuedSuspend    *charter.SuspendOutcome
		anyTerminal      bool
	)

	tctx := &nodeContext{machine: in.Machine, inst: inst}

	for _, call := range in.Calls {
		switch {
		case call.Name == "updateState":
			if _, err := tctx.UpdateState(call.Input); err != nil {
				toolResults = append(toolResults, errorResult(call.ID, err))
				continue
			}
			toolResults = append(toolResults, successResult(call.ID, "state updated"))

		case call.Name == "transition" || strings.HasPrefix(call.Name, "transition_"):
			if transitionQueued {
				toolResults = append(toolResults, errorResult(call.ID, fmt.Errorf("a transition is already queued for this turn")))
				continue
			}
			name, args := decodeTransitionCall(call)
			queuedCall = &queuedTransitionCall{name: name, args: args}
			transitionQueued = true
			toolResults = append(toolResults, successResult(call.ID, fmt.Sprintf("transition %q queued", name)))

		case anthropicServerTools[call.Name]:
			// Server-handled; no local dispatch, no tool-result.
			continue

		default:
			resolved, ok := resolver.ResolveTool(in.Charter, in.Leaf, call.Name)
			if !ok {
				toolResults = append(toolResults, errorResult(call.ID, fmt.Errorf("unknown tool %q", call.Name)))
				continue
			}
			if resolved.Tool.InputSchema != nil {
				if err := resolved.Tool.InputSchema.Validate(call.Input); err != nil {
					toolResults = append(toolResults, errorResult(call.ID, err))
					continue
				}
			}
			execCtx := contextFor(in.Machine, in.Leaf, resolved.Owner)

			result, err := resolved.Tool.Execute(ctx, call.Input, execCtx)
			if err != nil {
				toolResults = append(toolResults, errorResult(call.ID, err))
				continue
			}
			if pc, ok := execCtx.(*packContext); ok && pc.changed {
				changedPacks[pc.pack.Name] = true
			}
			if nc, ok := execCtx.(*nodeContext); ok && nc.changed {
				nodeStateChanged = true
			}

			switch {
			case result.Suspend != nil:
				if transitionQueued {
					toolResults = append(toolResults, errorResult(call.ID, fmt.Errorf("a transition is already queued for this turn")))
					continue
				}
				queuedSuspend = &charter.SuspendOutcome{
					SuspendID: result.Suspend.SuspendID,
					Reason:    result.Suspend.Reason,
					Metadata:  result.Suspend.Metadata,
					ToolUseID: call.ID,
				}
				transitionQueued = true
				toolResults = append(toolResults, successResult(call.ID, "suspended"))

			case result.Reply != nil:
				toolResults = append(toolResults, charter.ToolResultBlock{ToolUseID: call.ID, Content: result.Reply.LLMMessage})
				if result.Reply.UserMessage != nil {
					replyBlocks = append(replyBlocks, result.Reply.UserMessage)
				}

			default:
				toolResults = append(toolResults, charter.ToolResultBlock{ToolUseID: call.ID, Content: result.Value})
			}

			if resolved.Tool.Terminal {
				anyTerminal = true
			}
		}
	}

	nodeStateChanged = nodeStateChanged || tctx.changed

	var messages []charter.Message
	source := charter.MessageSource{InstanceID: in.SourceInstanceID}

	if nodeStateChanged {
		messages = append(messages, charter.Message{
			Role:   charter.RoleUser,
			Blocks: []charter.Block{charter.InstanceBlock{Kind: charter.InstanceEventState, InstanceID: inst.ID, Detail: inst.State}},
			Source: source,
		})
	}
	for packName := range changedPacks {
		messages = append(messages, charter.Message{
			Role:   charter.RoleUser,
			Blocks: []charter.Block{charter.InstanceBlock{Kind: charter.InstanceEventPackState, InstanceID: inst.ID, Detail: in.Machine.PackState(packName)}},
			Source: source,
		})
	}
	if len(toolResults) > 0 {
		blocks := make([]charter.Block, len(toolResults))
		for i, tr := range toolResults {
			blocks[i] = tr
		}
		messages = append(messages, charter.Message{Role: charter.RoleUser, Blocks: blocks, Source: source})
	}
	if len(replyBlocks) > 0 {
		messages = append(messages, charter.Message{Role: charter.RoleAssistant, Blocks: replyBlocks, Source: source})
	}

	out := Output{YieldReason: charter.YieldToolUse}
	if anyTerminal && !transitionQueued {
		out.YieldReason = charter.YieldEndTurn
	}

	if transitionQueued {
		var result charter.TransitionResult
		var err error
		switch {
		case queuedSuspend != nil:
			result = charter.TransitionResult{Kind: charter.TransitionResultSuspend, Suspend: queuedSuspend}
		case queuedCall != nil:
			tr, ok := resolver.ResolveTransition(in.Leaf, queuedCall.name)
			if !ok {
				err = fmt.Errorf("unknown transition %q", queuedCall.name)
			} else {
				result, err = transition.Resolve(ctx, in.Charter, in.Leaf, tr, queuedCall.args, tctx)
			}
		}
		if err != nil {
			messages = append(messages, charter.Message{
				Role:   charter.RoleUser,
				Blocks: []charter.Block{charter.TextBlock{Text: "transition error: " + err.Error()}},
				Source: source,
			})
			in.Machine.Enqueue(messages...)
			return out, err
		}

		applied, err := transition.Apply(in.Leaf, result)
		if err != nil {
			in.Machine.Enqueue(messages...)
			return out, err
		}
		messages = append(messages, charter.Message{
			Role: charter.RoleUser,
			Blocks: []charter.Block{charter.InstanceBlock{
				Kind:       eventKindFor(result.Kind),
				InstanceID: inst.ID,
				Detail:     result,
			}},
			Source: source,
		})
		out.YieldReason = applied.YieldReason
		out.CedeContent = applied.CedeContent
		out.SuspendInfo = applied.SuspendInfo
	}

	in.Machine.Enqueue(messages...)
	return out, nil
}

func eventKindFor(kind charter.TransitionResultKind) charter.InstanceEventKind {
	switch kind {
	case charter.TransitionResultTo:
		return charter.InstanceEventTransition
	case charter.TransitionResultSpawn:
		return charter.InstanceEventSpawn
	case charter.TransitionResultCede:
		return charter.InstanceEventCede
	case charter.TransitionResultSuspend:
		return charter.InstanceEventSuspend
	default:
		return charter.InstanceEventTransition
	}
}

// decodeTransitionCall splits a transition/transition_<name> call's input
// into the target transition name and its arguments (§4.3).
func decodeTransitionCall(call charter.ToolUseBlock) (string, map[string]any) {
	if call.Name == "transition" {
		name, _ := call.Input["to"].(string)
		return name, map[string]any{}
	}
	name := strings.TrimPrefix(call.Name, "transition_")
	args := make(map[string]any, len(call.Input))
	for k, v := range call.Input {
		if k == "reason" {
			continue
		}
		args[k] = v
	}
	return name, args
}

// contextFor builds the appropriate ToolContext for a resolved tool's
// owner. Whether a packState/state instance-message is warranted is decided
// afterward from the returned context's own changed flag, the same way for
// pack and node contexts alike — never unconditionally.
func contextFor(m *instance.Machine, leaf instance.Leaf, owner resolver.Owner) charter.ToolContext {
	switch owner.Kind {
	case "pack":
		pack := m.Charter.Packs[owner.PackName]
		return &packContext{machine: m, pack: pack, forInstance: leaf.Instance.ID}
	case "instance":
		if owner.InstanceID == leaf.Instance.ID {
			return &nodeContext{machine: m, inst: leaf.Instance}
		}
		for _, anc := range leaf.Ancestors {
			if anc.ID == owner.InstanceID {
				return &ancestorContext{machine: m, inst: anc}
			}
		}
		return &nodeContext{machine: m, inst: leaf.Instance}
	default: // "charter"
		return &nodeContext{machine: m, inst: leaf.Instance}
	}
}

func successResult(toolUseID, message string) charter.ToolResultBlock {
	return charter.ToolResultBlock{ToolUseID: toolUseID, Content: message}
}

func errorResult(toolUseID string, err error) charter.ToolResultBlock {
	return charter.ToolResultBlock{ToolUseID: toolUseID, Content: formatToolError(err), IsError: true}
}
