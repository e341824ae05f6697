package charter

import "fmt"

// Charter is the static, frozen registry a machine runs against: the node
// graph, the charter-level tools and transitions available to every node,
// the packs nodes may attach to, and the executor that drives inference
// (§3 Charter, §6 createCharter).
type Charter struct {
	// Name identifies the charter for logging and telemetry tags.
	Name string
	// Executor drives inference for every instance running under this
	// charter, unless a node or transition overrides ExecutorConfig.
	Executor Executor
	// Tools maps charter-level tool name to declaration (§4.1 priority 3).
	Tools map[string]*Tool
	// Transitions maps registered transition name to declaration, addressed
	// by TransitionKindRef declarations (§3).
	Transitions map[string]*Transition
	// Nodes maps node id to declaration, addressed by TransitionKindSerial
	// TargetNodeID and by TransitionKindRef targets.
	Nodes map[string]*Node
	// Packs maps pack name to declaration, addressed by Node.Packs.
	Packs map[string]*Pack
	// PromptBuilder overrides the executor's default system prompt
	// construction. Nil means the executor package's default applies.
	PromptBuilder SystemPromptBuilder
}

// CharterConfig is the input to CreateCharter (§6 createCharter(config)).
type CharterConfig struct {
	Name          string
	Executor      Executor
	Tools         []*Tool
	Transitions   []*Transition
	Nodes         []*Node
	Packs         []*Pack
	PromptBuilder SystemPromptBuilder
}

// CreateCharter validates config and returns a frozen Charter. Every
// validation failure here is a ConfigError: per §7, configuration problems
// are bugs caught at construction time, never surfaced as runtime errors.
func CreateCharter(config CharterConfig) (*Charter, error) {
	if config.Executor == nil {
		return nil, newConfigError("charter", "executor is required")
	}

	ch := &Charter{
		Name:          config.Name,
		Executor:      config.Executor,
		Tools:         map[string]*Tool{},
		Transitions:   map[string]*Transition{},
		Nodes:         map[string]*Node{},
		Packs:         map[string]*Pack{},
		PromptBuilder: config.PromptBuilder,
	}

	for _, t := range config.Tools {
		if t == nil {
			continue
		}
		if _, dup := ch.Tools[t.Name]; dup {
			return nil, newConfigError("charter", "duplicate charter-level tool %q", t.Name)
		}
		ch.Tools[t.Name] = t
	}
	for _, tr := range config.Transitions {
		if tr == nil {
			continue
		}
		if _, dup := ch.Transitions[tr.Name]; dup {
			return nil, newConfigError("charter", "duplicate registered transition %q", tr.Name)
		}
		ch.Transitions[tr.Name] = tr
	}
	for _, p := range config.Packs {
		if p == nil {
			continue
		}
		if _, dup := ch.Packs[p.Name]; dup {
			return nil, newConfigError("charter", "duplicate pack %q", p.Name)
		}
		ch.Packs[p.Name] = p
	}
	for _, n := range config.Nodes {
		if n == nil {
			continue
		}
		if _, dup := ch.Nodes[n.ID]; dup {
			return nil, newConfigError("node", "duplicate node id %q", n.ID)
		}
		ch.Nodes[n.ID] = n
	}

	for _, n := range ch.Nodes {
		if err := validateNode(ch, n); err != nil {
			return nil, err
		}
	}
	for _, tr := range ch.Transitions {
		if tr.Kind == TransitionKindSerial && tr.TargetNodeID != "" {
			if _, ok := ch.Nodes[tr.TargetNodeID]; !ok {
				return nil, newConfigError("transition:"+tr.Name, "target node %q is not registered", tr.TargetNodeID)
			}
		}
	}

	return ch, nil
}

// validateNode checks one node's pack references and same-scope name
// collisions between its own tools and its attached packs' tools (§4.1
// priority 1 vs 4 must still be distinct declarations; a node and a pack it
// attaches cannot both claim the same tool name, since that ambiguity can
// never be resolved by priority alone when the pack is later swapped).
func validateNode(ch *Charter, n *Node) error {
	for _, pname := range n.Packs {
		pack, ok := ch.Packs[pname]
		if !ok {
			return newConfigError("node:"+n.ID, fmt.Sprintf("references unknown pack %q", pname))
		}
		for tname := range pack.Tools {
			if _, clash := n.Tools[tname]; clash {
				return newConfigError("node:"+n.ID, "tool %q is declared on the node and on attached pack %q", tname, pname)
			}
		}
	}
	if n.Worker && len(n.Packs) > 0 {
		return newConfigError("node:"+n.ID, "worker nodes cannot attach packs")
	}
	for tname, tr := range n.Transitions {
		if tr.Kind == TransitionKindSerial && tr.TargetNodeID != "" {
			if _, ok := ch.Nodes[tr.TargetNodeID]; !ok {
				return newConfigError("node:"+n.ID, "transition %q targets unknown node %q", tname, tr.TargetNodeID)
			}
		}
		if tr.Kind == TransitionKindRef {
			if _, ok := ch.Transitions[tr.Ref]; !ok {
				return newConfigError("node:"+n.ID, "transition %q refs unknown registered transition %q", tname, tr.Ref)
			}
		}
	}
	return nil
}
