// Package transition resolves a Transition declaration into a
// charter.TransitionResult (code/general/serial/ref variants) and applies
// a resolved result onto a live instance tree. It imports charter and
// instance one-directionally; neither imports transition back, so the tool
// pipeline and command executor can both depend on it without a cycle.
package transition

import (
	"context"
	"fmt"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
	"github.com/chartrun/machine/resolver"
)

// MisuseError reports a transition result Apply cannot carry out: a
// transition-to with no target node, or with neither an explicit state nor
// a target node initial state (§7 Transition misuse); a spawn with no
// children or a child without a node; a suspend without a suspend id; or an
// unknown result kind.
type MisuseError struct {
	Reason string
}

func (e *MisuseError) Error() string { return "transition misuse: " + e.Reason }

// Resolve turns a Transition declaration plus call arguments into a
// TransitionResult, dispatching on Kind (§3 Transition variants).
func Resolve(ctx context.Context, ch *charter.Charter, leaf instance.Leaf, tr *charter.Transition, args map[string]any, tctx charter.TransitionContext) (charter.TransitionResult, error) {
	switch tr.Kind {
	case charter.TransitionKindCode:
		if tr.Execute == nil {
			return charter.TransitionResult{}, fmt.Errorf("transition %q declares kind code but has no Execute function", tr.Name)
		}
		return tr.Execute(ctx, leaf.Instance.State, tctx, args)

	case charter.TransitionKindGeneral:
		return resolveGeneral(args)

	case charter.TransitionKindSerial:
		return resolveSerial(ch, tr, args)

	case charter.TransitionKindRef:
		ref, err := resolver.ResolveRefTransition(ch, tr.Ref)
		if err != nil {
			return charter.TransitionResult{}, err
		}
		return Resolve(ctx, ch, leaf, ref, args, tctx)

	default:
		return charter.TransitionResult{}, fmt.Errorf("transition %q has unknown kind %q", tr.Name, tr.Kind)
	}
}

// resolveGeneral builds a TransitionResult from an inline node definition
// supplied by the agent in the call's arguments: instructions and an
// optional initial state. General transitions carry no executable tools —
// those can only come from charter-registered nodes (§4.8 "inline tool
// closures cannot be serialized" applies equally to inline creation).
func resolveGeneral(args map[string]any) (charter.TransitionResult, error) {
	instructions, _ := args["instructions"].(string)
	var initialState map[string]any
	if s, ok := args["state"].(map[string]any); ok {
		initialState = s
	}
	node := charter.CreateNode("", func(n *charter.Node) {
		n.Instructions = instructions
		n.InitialState = initialState
	})
	return charter.TransitionTo(node, initialState, nil), nil
}

// resolveSerial builds a TransitionResult targeting the transition's fixed
// node, optionally overriding state from the call arguments.
func resolveSerial(ch *charter.Charter, tr *charter.Transition, args map[string]any) (charter.TransitionResult, error) {
	node := tr.TargetNode
	if node == nil {
		n, err := resolver.ResolveRefNode(ch, tr.TargetNodeID)
		if err != nil {
			return charter.TransitionResult{}, err
		}
		node = n
	}
	var state map[string]any
	if s, ok := args["state"].(map[string]any); ok {
		state = s
	}
	return charter.TransitionTo(node, state, nil), nil
}
