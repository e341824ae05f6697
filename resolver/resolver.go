// Package resolver implements name resolution across the four scopes a
// tool or transition name may live in: the current node, ancestors nearest
// to root, the charter, and packs attached to the current node.
package resolver

import (
	"fmt"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
)

// Owner tags where a resolved tool came from.
type Owner struct {
	// Kind is one of "instance", "charter", or "pack".
	Kind string
	// InstanceID is set when Kind == "instance": the instance that owns the
	// node the tool was found on (the current instance or an ancestor).
	InstanceID string
	// PackName is set when Kind == "pack".
	PackName string
}

// ResolutionError reports an unknown ref or tool/transition name (§4.1,
// §7 Resolution error).
type ResolutionError struct {
	Name   string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution error for %q: %s", e.Name, e.Reason)
}

// ResolvedTool pairs a resolved tool with its owner.
type ResolvedTool struct {
	Tool  *charter.Tool
	Owner Owner
}

// ResolveTool walks current node tools, then ancestors nearest-first, then
// charter tools, then packs attached to the current node (§4.1 priorities
// 1-4). The first match wins; higher-priority scopes silently shadow
// lower-priority duplicates.
func ResolveTool(ch *charter.Charter, leaf instance.Leaf, name string) (*ResolvedTool, bool) {
	if t, ok := leaf.Instance.Node.Tools[name]; ok {
		return &ResolvedTool{Tool: t, Owner: Owner{Kind: "instance", InstanceID: leaf.Instance.ID}}, true
	}
	for _, anc := range leaf.Ancestors {
		if t, ok := anc.Node.Tools[name]; ok {
			return &ResolvedTool{Tool: t, Owner: Owner{Kind: "instance", InstanceID: anc.ID}}, true
		}
	}
	if t, ok := ch.Tools[name]; ok {
		return &ResolvedTool{Tool: t, Owner: Owner{Kind: "charter"}}, true
	}
	for _, packName := range leaf.Instance.Node.Packs {
		pack, ok := ch.Packs[packName]
		if !ok {
			continue
		}
		if t, ok := pack.Tools[name]; ok {
			return &ResolvedTool{Tool: t, Owner: Owner{Kind: "pack", PackName: pack.Name}}, true
		}
	}
	return nil, false
}

// ResolveTransition resolves a transition name against the current node
// only — transitions never walk ancestors (§4.1).
func ResolveTransition(leaf instance.Leaf, name string) (*charter.Transition, bool) {
	t, ok := leaf.Instance.Node.Transitions[name]
	return t, ok
}

// ResolveRefNode resolves a node reference against the charter's Nodes
// registry.
func ResolveRefNode(ch *charter.Charter, nodeID string) (*charter.Node, error) {
	n, ok := ch.Nodes[nodeID]
	if !ok {
		return nil, &ResolutionError{Name: nodeID, Reason: "no such node registered in charter"}
	}
	return n, nil
}

// ResolveRefTransition resolves a registered-transition reference against
// the charter's Transitions registry (used by TransitionKindRef).
func ResolveRefTransition(ch *charter.Charter, name string) (*charter.Transition, error) {
	t, ok := ch.Transitions[name]
	if !ok {
		return nil, &ResolutionError{Name: name, Reason: "no such transition registered in charter"}
	}
	return t, nil
}

// ResolveRefTool resolves a registered-tool reference against the
// charter's Tools registry (used by the serializer to reconstitute
// Ref{name} entries).
func ResolveRefTool(ch *charter.Charter, name string) (*charter.Tool, error) {
	t, ok := ch.Tools[name]
	if !ok {
		return nil, &ResolutionError{Name: name, Reason: "no such tool registered in charter"}
	}
	return t, nil
}
