// Package instance holds the live, mutable tree that a machine drives
// through a turn: instances, the machine itself, turns and steps. It
// imports charter (the static registry) one-directionally; nothing in
// charter ever references a type from this package.
package instance

import (
	"time"

	"github.com/chartrun/machine/charter"
)

// MaxTreeDepth caps instance tree depth; exceeding it indicates a
// programming bug in transition/spawn logic rather than a runtime
// condition (§7 Cycle/depth error).
const MaxTreeDepth = 100

// SuspendInfo marks an instance paused pending an external resume whose
// SuspendID matches.
type SuspendInfo struct {
	SuspendID   string
	Reason      string
	SuspendedAt time.Time
	Metadata    map[string]any
	// ToolUseID is the id of the ToolUseBlock that triggered this
	// suspension, set only when a tool's suspend marker (not a command or a
	// bare transition) produced it. Resume uses this, not SuspendID, as the
	// ToolUseID on the synthetic tool_result it injects — and injects
	// nothing at all when this is empty, since there is no outstanding
	// tool_use block to satisfy (§4.7 Resume path).
	ToolUseID string
}

// Instance is the runtime tree node: a live realization of a Node, with its
// own state, children, and (root only) pack states.
type Instance struct {
	// ID uniquely identifies this instance within its machine.
	ID string
	// Node is the static declaration this instance realizes.
	Node *charter.Node
	// State is this instance's validated node state.
	State map[string]any
	// Children is the ordered list of child instances. Appended to by
	// spawn, cleared by transition-to, emptied one-at-a-time by cede.
	Children []*Instance
	// PackStates holds every attached pack's state, keyed by pack name.
	// Only ever populated on the root instance (§3 invariant 3); non-root
	// instances carry a nil map and read through Machine.PackState.
	PackStates map[string]map[string]any
	// ExecutorConfig overrides the charter/node default executor
	// configuration for this instance, if set.
	ExecutorConfig *charter.ExecutorConfig
	// Suspended is set while this instance awaits a matching resume.
	Suspended *SuspendInfo
}

// NewInstance creates an instance of node with the given id, state, and
// executor override. State defaults to node.InitialState when nil.
func NewInstance(id string, node *charter.Node, state map[string]any, cfg *charter.ExecutorConfig) *Instance {
	if state == nil {
		state = cloneMap(node.InitialState)
	}
	return &Instance{
		ID:             id,
		Node:           node,
		State:          state,
		ExecutorConfig: cfg,
	}
}

// CreateInstance implements the `createInstance` lifecycle entry (§3
// Lifecycle): mints a fresh id and constructs the instance.
func CreateInstance(node *charter.Node, state map[string]any, cfg *charter.ExecutorConfig) *Instance {
	return NewInstance(charter.NewID(), node, state, cfg)
}

// IsLeaf reports whether this instance has no children.
func (inst *Instance) IsLeaf() bool {
	return len(inst.Children) == 0
}

// IsWorker reports whether this instance realizes a worker node.
func (inst *Instance) IsWorker() bool {
	return inst.Node != nil && inst.Node.Worker
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
