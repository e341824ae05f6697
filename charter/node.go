package charter

// Command is a synchronous, user-callable method on an instance that
// bypasses inference (§4.5). Commands are declared on a Node or a Pack.
type Command struct {
	Name        string
	Description string
	InputSchema *Schema
	Execute     CommandExecuteFunc
}

// Node is a static declaration: a named point in the charter graph with
// instructions, a state schema, and the tools/transitions/commands it
// exposes while active.
type Node struct {
	// ID uniquely identifies the node within the charter.
	ID string
	// Instructions is free text injected into the system prompt while this
	// node is active (§4.6).
	Instructions string
	// StateSchema validates this node's instance state. Nil means any
	// object is accepted.
	StateSchema *Schema
	// Tools maps tool name to declaration, scoped to this node (§4.1
	// priority 1).
	Tools map[string]*Tool
	// Transitions maps transition name to declaration, resolved only
	// against the current node (no ancestor walk, §4.1).
	Transitions map[string]*Transition
	// Commands maps command name to declaration.
	Commands map[string]*Command
	// InitialState seeds a new instance of this node when no explicit state
	// is supplied by the transition that created it.
	InitialState map[string]any
	// Packs lists the pack names attached to this node. Pack tools are
	// resolved only against the *current* node's pack list (§4.1 priority
	// 4); ancestors' packs are not considered.
	Packs []string
	// Worker marks the node as a parallel worker leaf: it never delivers
	// end_turn to the machine and has no access to pack state (§3
	// invariant 4).
	Worker bool
	// ExecutorConfig optionally overrides the charter's default executor
	// configuration for instances of this node.
	ExecutorConfig *ExecutorConfig
}

// NewNode constructs a Node with empty maps ready for population, assigning
// no id — callers set ID explicitly (§6 createNode assigns a uuid when the
// caller leaves it blank; see CreateNode).
func NewNode(id string) *Node {
	return &Node{
		ID:          id,
		Tools:       map[string]*Tool{},
		Transitions: map[string]*Transition{},
		Commands:    map[string]*Command{},
	}
}

// CreateNode implements the `createNode` entry from §6: it assigns a uuid
// when id is empty and returns the node ready for registration in a Charter.
func CreateNode(id string, configure func(*Node)) *Node {
	if id == "" {
		id = newID()
	}
	n := NewNode(id)
	if configure != nil {
		configure(n)
	}
	return n
}
