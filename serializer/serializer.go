// Package serializer implements the lossless durable form of an instance
// tree described in §4.8 (C9): charter-registered tools, transitions, and
// nodes collapse to a {ref: name} pointer, and anything not registered in
// the charter is inlined as a SerialNode/SerialTransition. Round-tripping a
// machine whose tools/transitions are all registered is observationally
// equal to the original (§8 invariant 6).
package serializer

import (
	"fmt"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
)

type (
	// SerialTransition is the inline form of a Transition that isn't
	// registered in the charter's Transitions map (§4.8).
	SerialTransition struct {
		Description string             `json:"description,omitempty"`
		Node        *SerializedNodeRef `json:"node,omitempty"`
		Arguments   map[string]any     `json:"arguments,omitempty"`
	}

	// SerializedTransitionRef is a transition addressed by {ref: name} or
	// inlined in full (§4.8 "Transitions (refs or inline)").
	SerializedTransitionRef struct {
		Ref        string            `json:"ref,omitempty"`
		Transition *SerialTransition `json:"transition,omitempty"`
	}

	// SerialNode is the inline form of a Node that isn't registered in the
	// charter's Nodes map (§4.8).
	SerialNode struct {
		Instructions string                              `json:"instructions"`
		Validator    map[string]any                      `json:"validator,omitempty"`
		Transitions  map[string]SerializedTransitionRef `json:"transitions,omitempty"`
		// Tools lists only registered tools by ref: inline tool closures
		// cannot be serialized (§4.8 "Tools (refs only...)").
		Tools        map[string]string `json:"tools,omitempty"`
		InitialState map[string]any    `json:"initialState,omitempty"`
	}

	// SerializedNodeRef is a node addressed by {ref: name} or inlined in
	// full (§4.8 "Instance serializes as { ... node (ref or serial) ... }").
	SerializedNodeRef struct {
		Ref  string      `json:"ref,omitempty"`
		Node *SerialNode `json:"node,omitempty"`
	}

	// SerializedInstance mirrors §4.8's `{ id, node (ref or serial), state,
	// children (recursive), packStates?, executorConfig?, suspended? }`.
	SerializedInstance struct {
		ID             string                     `json:"id"`
		Node           SerializedNodeRef          `json:"node"`
		State          map[string]any             `json:"state"`
		Children       []SerializedInstance       `json:"children,omitempty"`
		PackStates     map[string]map[string]any  `json:"packStates,omitempty"`
		ExecutorConfig *charter.ExecutorConfig    `json:"executorConfig,omitempty"`
		Suspended      *instance.SuspendInfo      `json:"suspended,omitempty"`
	}

	// SerializedMachine is `{ instance, history }` (§4.8, §6).
	SerializedMachine struct {
		Instance SerializedInstance `json:"instance"`
		History  []charter.Message  `json:"history"`
	}
)

// nodeRefName returns the charter-registered id of node, if any.
func nodeRefName(ch *charter.Charter, node *charter.Node) (string, bool) {
	if node == nil {
		return "", false
	}
	if registered, ok := ch.Nodes[node.ID]; ok && registered == node {
		return node.ID, true
	}
	return "", false
}

// transitionRefName returns the charter-registered name of tr, if any.
func transitionRefName(ch *charter.Charter, tr *charter.Transition) (string, bool) {
	if tr == nil {
		return "", false
	}
	if registered, ok := ch.Transitions[tr.Name]; ok && registered == tr {
		return tr.Name, true
	}
	return "", false
}

// SerializeNode converts node to its ref-or-inline wire form.
func SerializeNode(ch *charter.Charter, node *charter.Node) SerializedNodeRef {
	if name, ok := nodeRefName(ch, node); ok {
		return SerializedNodeRef{Ref: name}
	}
	return SerializedNodeRef{Node: serializeInlineNode(ch, node)}
}

func serializeInlineNode(ch *charter.Charter, node *charter.Node) *SerialNode {
	sn := &SerialNode{
		Instructions: node.Instructions,
		InitialState: node.InitialState,
	}
	if node.StateSchema != nil {
		sn.Validator = node.StateSchema.JSONSchema()
	}
	if len(node.Transitions) > 0 {
		sn.Transitions = make(map[string]SerializedTransitionRef, len(node.Transitions))
		for name, tr := range node.Transitions {
			sn.Transitions[name] = SerializeTransition(ch, tr)
		}
	}
	if len(node.Tools) > 0 {
		sn.Tools = map[string]string{}
		for name, t := range node.Tools {
			if ref, ok := toolRefName(ch, t); ok {
				sn.Tools[name] = ref
			}
			// Inline tool closures are dropped: §4.8 "inline tool closures
			// cannot be serialized" — the deserialized charter must
			// register every tool it relies on.
		}
	}
	return sn
}

func toolRefName(ch *charter.Charter, t *charter.Tool) (string, bool) {
	if t == nil {
		return "", false
	}
	if registered, ok := ch.Tools[t.Name]; ok && registered == t {
		return t.Name, true
	}
	return "", false
}

// SerializeTransition converts tr to its ref-or-inline wire form.
func SerializeTransition(ch *charter.Charter, tr *charter.Transition) SerializedTransitionRef {
	if name, ok := transitionRefName(ch, tr); ok {
		return SerializedTransitionRef{Ref: name}
	}
	st := &SerialTransition{Description: tr.Description}
	if tr.ArgumentsSchema != nil {
		st.Arguments = tr.ArgumentsSchema.JSONSchema()
	}
	switch tr.Kind {
	case charter.TransitionKindSerial:
		if tr.TargetNodeID != "" {
			if node, ok := ch.Nodes[tr.TargetNodeID]; ok {
				ref := SerializeNode(ch, node)
				st.Node = &ref
			} else {
				ref := SerializedNodeRef{Ref: tr.TargetNodeID}
				st.Node = &ref
			}
		} else if tr.TargetNode != nil {
			ref := SerializeNode(ch, tr.TargetNode)
			st.Node = &ref
		}
	case charter.TransitionKindRef:
		return SerializedTransitionRef{Ref: tr.Ref}
	}
	return SerializedTransitionRef{Transition: st}
}

// SerializeInstance walks inst recursively, producing its wire form. Only
// the root instance's PackStates are non-nil per §3 invariant 3.
func SerializeInstance(ch *charter.Charter, inst *instance.Instance, isRoot bool) SerializedInstance {
	out := SerializedInstance{
		ID:             inst.ID,
		Node:           SerializeNode(ch, inst.Node),
		State:          inst.State,
		ExecutorConfig: inst.ExecutorConfig,
		Suspended:      inst.Suspended,
	}
	if isRoot {
		out.PackStates = inst.PackStates
	}
	for _, child := range inst.Children {
		out.Children = append(out.Children, SerializeInstance(ch, child, false))
	}
	return out
}

// SerializeMachine implements `serializeMachine(machine) → SerializedMachine`
// (§6).
func SerializeMachine(m *instance.Machine) SerializedMachine {
	return SerializedMachine{
		Instance: SerializeInstance(m.Charter, m.Root, true),
		History:  m.History,
	}
}

// DeserializeError reports an unresolvable ref encountered while
// reconstituting a serialized tree (§4.8 "unknown refs raise a resolution
// error").
type DeserializeError struct {
	Kind string
	Ref  string
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("serializer: unresolved %s ref %q", e.Kind, e.Ref)
}

// DeserializeNode reconstitutes a node from its wire form, resolving refs
// against ch and materializing inline SerialNodes as fresh, unregistered
// *charter.Node values.
func DeserializeNode(ch *charter.Charter, ref SerializedNodeRef) (*charter.Node, error) {
	if ref.Ref != "" {
		n, ok := ch.Nodes[ref.Ref]
		if !ok {
			return nil, &DeserializeError{Kind: "node", Ref: ref.Ref}
		}
		return n, nil
	}
	if ref.Node == nil {
		return nil, &DeserializeError{Kind: "node", Ref: "<empty>"}
	}
	sn := ref.Node
	node := charter.NewNode(charter.NewID())
	node.Instructions = sn.Instructions
	node.InitialState = sn.InitialState
	if sn.Validator != nil {
		schema, err := charter.NewSchema(sn.Validator)
		if err != nil {
			return nil, fmt.Errorf("serializer: compile node validator: %w", err)
		}
		node.StateSchema = schema
	}
	for name, ref := range sn.Tools {
		t, err := ResolveToolRef(ch, ref)
		if err != nil {
			return nil, err
		}
		node.Tools[name] = t
	}
	for name, tref := range sn.Transitions {
		tr, err := DeserializeTransition(ch, tref)
		if err != nil {
			return nil, err
		}
		node.Transitions[name] = tr
	}
	return node, nil
}

// ResolveToolRef resolves a tool ref against the charter's Tools registry
// (inline tools are never present in SerialNode.Tools — §4.8).
func ResolveToolRef(ch *charter.Charter, name string) (*charter.Tool, error) {
	t, ok := ch.Tools[name]
	if !ok {
		return nil, &DeserializeError{Kind: "tool", Ref: name}
	}
	return t, nil
}

// DeserializeTransition reconstitutes a transition from its wire form.
func DeserializeTransition(ch *charter.Charter, ref SerializedTransitionRef) (*charter.Transition, error) {
	if ref.Ref != "" {
		tr, ok := ch.Transitions[ref.Ref]
		if !ok {
			return nil, &DeserializeError{Kind: "transition", Ref: ref.Ref}
		}
		return tr, nil
	}
	if ref.Transition == nil {
		return nil, &DeserializeError{Kind: "transition", Ref: "<empty>"}
	}
	st := ref.Transition
	tr := &charter.Transition{
		Kind:        charter.TransitionKindSerial,
		Description: st.Description,
	}
	if st.Arguments != nil {
		schema, err := charter.NewSchema(st.Arguments)
		if err != nil {
			return nil, fmt.Errorf("serializer: compile transition arguments: %w", err)
		}
		tr.ArgumentsSchema = schema
	}
	if st.Node != nil {
		if st.Node.Ref != "" {
			if _, ok := ch.Nodes[st.Node.Ref]; ok {
				tr.TargetNodeID = st.Node.Ref
			} else {
				return nil, &DeserializeError{Kind: "node", Ref: st.Node.Ref}
			}
		} else {
			target, err := DeserializeNode(ch, *st.Node)
			if err != nil {
				return nil, err
			}
			tr.TargetNode = target
		}
	}
	return tr, nil
}

// DeserializeInstance reconstitutes an instance tree from its wire form.
func DeserializeInstance(ch *charter.Charter, si SerializedInstance, isRoot bool) (*instance.Instance, error) {
	node, err := DeserializeNode(ch, si.Node)
	if err != nil {
		return nil, err
	}
	inst := &instance.Instance{
		ID:             si.ID,
		Node:           node,
		State:          si.State,
		ExecutorConfig: si.ExecutorConfig,
		Suspended:      si.Suspended,
	}
	if isRoot {
		inst.PackStates = si.PackStates
		if inst.PackStates == nil {
			inst.PackStates = map[string]map[string]any{}
		}
	}
	for _, sc := range si.Children {
		child, err := DeserializeInstance(ch, sc, false)
		if err != nil {
			return nil, err
		}
		inst.Children = append(inst.Children, child)
	}
	return inst, nil
}

// DeserializeMachine implements `deserializeMachine(charter, ...) → Machine`
// (§6): reconstitutes the instance tree and history against ch.
func DeserializeMachine(ch *charter.Charter, sm SerializedMachine) (*instance.Machine, error) {
	root, err := DeserializeInstance(ch, sm.Instance, true)
	if err != nil {
		return nil, err
	}
	return instance.CreateMachine(ch, instance.MachineConfig{
		Instance: root,
		History:  sm.History,
	})
}
