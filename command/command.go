// Package command implements synchronous, user-invoked methods on any
// instance that bypass inference entirely (§4.5).
package command

import (
	"context"
	"fmt"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
	"github.com/chartrun/machine/state"
	"github.com/chartrun/machine/transition"
)

// Result mirrors `{ machine', result, messages? }` from §4.5/§6
// (runCommand).
type Result struct {
	Machine     *instance.Machine
	Value       any
	Messages    []charter.Message
	YieldReason charter.YieldReason
	CedeContent any
	SuspendInfo *instance.SuspendInfo
}

// NotFoundError reports that a named command does not exist on the target
// instance's node or any attached pack (§4.5 step 2).
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("no such command %q", e.Name) }

// Run implements `runCommand(machine, name, input, instanceId?)`: locates
// the target instance (default active leaf), resolves the command,
// validates input, executes it, and applies the resulting tree surgery.
func Run(ctx context.Context, m *instance.Machine, name string, input map[string]any, instanceID string) (Result, error) {
	target, ancestors, err := locateTarget(m, instanceID)
	if err != nil {
		return Result{}, err
	}

	cmd, owner := resolveCommand(m.Charter, target, name)
	if cmd == nil {
		return Result{}, &NotFoundError{Name: name}
	}
	if cmd.InputSchema != nil {
		if err := cmd.InputSchema.Validate(input); err != nil {
			return Result{Machine: m}, err
		}
	}

	leaf := instance.Leaf{Instance: target, Ancestors: ancestors}
	cctx := buildContext(m, leaf, owner)

	result, err := cmd.Execute(ctx, input, cctx)
	if err != nil {
		return Result{Machine: m}, err
	}

	invocation := charter.Message{
		Role:   charter.RoleCommand,
		Blocks: []charter.Block{charter.TextBlock{Text: name}},
		Source: charter.MessageSource{InstanceID: target.ID},
	}
	out := Result{Machine: m, Messages: []charter.Message{invocation}, YieldReason: charter.YieldCommand}

	switch result.Kind {
	case charter.CommandResultValue:
		if result.Value != nil && result.Value.State != nil {
			target.State = result.Value.State
		}
		if result.Value != nil {
			out.Value = result.Value.Value
		}

	case charter.CommandResultResume:
		if target.Suspended == nil {
			return Result{}, fmt.Errorf("instance %s is not suspended", target.ID)
		}
		toolUseID := target.Suspended.ToolUseID
		target.Suspended = nil
		if result.Resume != nil {
			out.Value = result.Resume.Payload
			// Only inject a synthetic tool_result if the suspension this
			// command is resuming was itself tool-originated (§4.7 Resume
			// path); a suspension raised by a command or transition left no
			// outstanding tool_use block to satisfy.
			if toolUseID != "" {
				resumeMsg := charter.Message{
					Role: charter.RoleUser,
					Blocks: []charter.Block{charter.ToolResultBlock{
						ToolUseID: toolUseID,
						Content:   result.Resume.Payload,
						IsError:   result.Resume.IsError,
					}},
					Source: charter.MessageSource{InstanceID: target.ID, External: true},
				}
				out.Messages = append(out.Messages, resumeMsg)
			}
		}

	default:
		tr, ok := result.AsTransitionResult()
		if !ok {
			return Result{}, fmt.Errorf("unsupported command result kind %q", result.Kind)
		}
		applied, err := transition.Apply(leaf, tr)
		if err != nil {
			return Result{}, err
		}
		out.YieldReason = applied.YieldReason
		out.CedeContent = applied.CedeContent
		out.SuspendInfo = applied.SuspendInfo
		if applied.YieldReason == charter.YieldCede && len(ancestors) > 0 {
			instance.RemoveChild(ancestors[0], target.ID)
		}
	}

	m.History = append(m.History, out.Messages...)
	return out, nil
}

// locateTarget resolves the command's target instance: the explicit
// instanceID if given, else the first active leaf in depth-first order
// (§4.5 step 1).
func locateTarget(m *instance.Machine, instanceID string) (*instance.Instance, []*instance.Instance, error) {
	if instanceID != "" {
		inst, ancestors, ok := instance.FindByID(m.Root, instanceID)
		if !ok {
			return nil, nil, fmt.Errorf("no such instance %q", instanceID)
		}
		return inst, ancestors, nil
	}
	leaves, err := instance.ActiveLeaves(m.Root)
	if err != nil {
		return nil, nil, err
	}
	if len(leaves) == 0 {
		return nil, nil, fmt.Errorf("machine has no active leaf")
	}
	return leaves[0].Instance, leaves[0].Ancestors, nil
}

// resolveCommand looks up name as a node-command first, then as a
// pack-command across the node's attached packs (§4.5 step 2).
func resolveCommand(ch *charter.Charter, target *instance.Instance, name string) (*charter.Command, string) {
	if cmd, ok := target.Node.Commands[name]; ok {
		return cmd, ""
	}
	for _, packName := range target.Node.Packs {
		pack, ok := ch.Packs[packName]
		if !ok {
			continue
		}
		if cmd, ok := pack.Commands[name]; ok {
			return cmd, packName
		}
	}
	return nil, ""
}

// commandContext is the CommandContext passed to Command.Execute: writable
// node state when owner == "", writable pack state when owner names a pack.
type commandContext struct {
	machine *instance.Machine
	target  *instance.Instance
	pack    *charter.Pack
}

func buildContext(m *instance.Machine, leaf instance.Leaf, packName string) charter.CommandContext {
	var pack *charter.Pack
	if packName != "" {
		pack = m.Charter.Packs[packName]
	}
	return &commandContext{machine: m, target: leaf.Instance, pack: pack}
}

func (c *commandContext) State() map[string]any {
	if c.pack != nil {
		return c.machine.PackState(c.pack.Name)
	}
	return c.target.State
}

func (c *commandContext) UpdateState(patch map[string]any) (map[string]any, error) {
	if c.pack != nil {
		res := state.UpdateState(c.machine.PackState(c.pack.Name), patch, c.pack.StateSchema)
		if !res.Success {
			return c.machine.PackState(c.pack.Name), fmt.Errorf("state validation failed: %s", res.Error)
		}
		c.machine.SetPackState(c.pack.Name, res.State)
		return res.State, nil
	}
	res := state.UpdateState(c.target.State, patch, c.target.Node.StateSchema)
	if !res.Success {
		return c.target.State, fmt.Errorf("state validation failed: %s", res.Error)
	}
	c.target.State = res.State
	return c.target.State, nil
}

func (c *commandContext) InstanceID() string { return c.target.ID }

func (c *commandContext) GetInstanceMessages() []charter.Message {
	return c.machine.InstanceMessages(c.target.ID)
}
