// Package client implements the wire-safe, read-only projection of an
// instance described in §4.9 (C10): DryClientInstance on the producer side,
// hydrated back into a callable ClientInstance on the consumer side.
package client

import (
	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
)

type (
	// CommandDescriptor describes one callable command: its schema-derived
	// input contract, without the closure that implements it.
	CommandDescriptor struct {
		Description string         `json:"description"`
		InputSchema map[string]any `json:"inputSchema,omitempty"`
	}

	// DryClientNode is the read-only projection of a Node: just enough for
	// a consumer to render instructions/state and discover callable
	// commands (§4.9).
	DryClientNode struct {
		Instructions string                       `json:"instructions"`
		Validator    map[string]any               `json:"validator,omitempty"`
		Commands     map[string]CommandDescriptor `json:"commands"`
	}

	// DryClientInstance is the wire view produced by createDryClientInstance
	// (§6, §4.9): instance id, state, pack states (root only), and the
	// node projection.
	DryClientInstance struct {
		ID         string                    `json:"id"`
		Node       DryClientNode             `json:"node"`
		State      map[string]any            `json:"state"`
		PackStates map[string]map[string]any `json:"packStates,omitempty"`
		Children   []DryClientInstance       `json:"children,omitempty"`
	}
)

// CreateDryClientInstance implements `createDryClientInstance(instance) →
// DryClientInstance` (§6). ch supplies pack command descriptors for any
// pack the instance's node attaches, since pack commands aren't stored on
// the node itself.
func CreateDryClientInstance(ch *charter.Charter, inst *instance.Instance, isRoot bool) DryClientInstance {
	out := DryClientInstance{
		ID:    inst.ID,
		Node:  dryNode(ch, inst.Node),
		State: inst.State,
	}
	if isRoot {
		out.PackStates = inst.PackStates
	}
	for _, child := range inst.Children {
		out.Children = append(out.Children, CreateDryClientInstance(ch, child, false))
	}
	return out
}

func dryNode(ch *charter.Charter, node *charter.Node) DryClientNode {
	dn := DryClientNode{
		Instructions: node.Instructions,
		Commands:     map[string]CommandDescriptor{},
	}
	if node.StateSchema != nil {
		dn.Validator = node.StateSchema.JSONSchema()
	}
	for name, cmd := range node.Commands {
		dn.Commands[name] = commandDescriptor(cmd)
	}
	for _, packName := range node.Packs {
		pack, ok := ch.Packs[packName]
		if !ok {
			continue
		}
		for name, cmd := range pack.Commands {
			dn.Commands[name] = commandDescriptor(cmd)
		}
	}
	return dn
}

func commandDescriptor(cmd *charter.Command) CommandDescriptor {
	d := CommandDescriptor{Description: cmd.Description}
	if cmd.InputSchema != nil {
		d.InputSchema = cmd.InputSchema.JSONSchema()
	}
	return d
}

type (
	// CommandRequest is the `{ type: "command", name, input }` value a
	// hydrated command callable constructs, sent back through the command
	// executor (§4.9 "Hydration").
	CommandRequest struct {
		Type  string         `json:"type"`
		Name  string         `json:"name"`
		Input map[string]any `json:"input"`
	}

	// Command is a callable bound to one command descriptor: calling it
	// builds the CommandRequest value a consumer sends to runCommand.
	Command func(input map[string]any) CommandRequest

	// ClientInstance is the consumer-side hydration of a DryClientInstance:
	// the same read-only data, plus each command descriptor turned into a
	// callable (§4.9 "Hydration").
	ClientInstance struct {
		ID         string
		Instructions string
		Validator  map[string]any
		State      map[string]any
		PackStates map[string]map[string]any
		Commands   map[string]Command
		Children   []*ClientInstance
	}
)

// HydrateClientInstance implements `hydrateClientInstance(dry) →
// ClientInstance` (§6): turns every command descriptor into a callable that
// constructs a Command request value.
func HydrateClientInstance(dry DryClientInstance) *ClientInstance {
	ci := &ClientInstance{
		ID:           dry.ID,
		Instructions: dry.Node.Instructions,
		Validator:    dry.Node.Validator,
		State:        dry.State,
		PackStates:   dry.PackStates,
		Commands:     map[string]Command{},
	}
	for name := range dry.Node.Commands {
		name := name // capture
		ci.Commands[name] = func(input map[string]any) CommandRequest {
			return CommandRequest{Type: "command", Name: name, Input: input}
		}
	}
	for _, child := range dry.Children {
		ci.Children = append(ci.Children, HydrateClientInstance(child))
	}
	return ci
}
