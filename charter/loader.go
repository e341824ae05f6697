package charter

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLNode is the on-disk shape of a node within a YAML charter skeleton
// (SPEC_FULL.md §A.3): instructions, schemas, and transition refs can be
// expressed declaratively; tool/transition/command closures cannot, so a
// YAML node only ever references tools/transitions already registered on
// the Charter it's loaded into.
type YAMLNode struct {
	ID           string                      `yaml:"id"`
	Instructions string                      `yaml:"instructions"`
	StateSchema  map[string]any              `yaml:"stateSchema,omitempty"`
	Tools        []string                    `yaml:"tools,omitempty"`
	Transitions  map[string]YAMLTransition `yaml:"transitions,omitempty"`
	InitialState map[string]any              `yaml:"initialState,omitempty"`
	Packs        []string                    `yaml:"packs,omitempty"`
	Worker       bool                        `yaml:"worker,omitempty"`
}

// YAMLTransition is a ref-only transition entry: it points at a transition
// already registered in the charter's Transitions map (TransitionKindRef),
// which is the only transition shape a declarative file can fully express.
type YAMLTransition struct {
	Ref string `yaml:"ref"`
}

// YAMLCharter is the top-level document LoadYAMLNodes parses.
type YAMLCharter struct {
	Nodes []YAMLNode `yaml:"nodes"`
}

// LoadYAMLNodes parses a YAML charter-node skeleton and returns Nodes ready
// to pass to CharterConfig.Nodes. Every tool and transition named in the
// document must already exist in existingTools/existingTransitions (the
// charter's own Tools/Transitions maps being assembled alongside it):
// YAML can declare the graph shape but never tool/transition logic.
func LoadYAMLNodes(doc []byte, existingTools map[string]*Tool, existingTransitions map[string]*Transition) ([]*Node, error) {
	var parsed YAMLCharter
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("charter: parse yaml charter: %w", err)
	}

	nodes := make([]*Node, 0, len(parsed.Nodes))
	for _, yn := range parsed.Nodes {
		if yn.ID == "" {
			return nil, fmt.Errorf("charter: yaml node missing id")
		}
		n := NewNode(yn.ID)
		n.Instructions = yn.Instructions
		n.InitialState = yn.InitialState
		n.Packs = append([]string{}, yn.Packs...)
		n.Worker = yn.Worker

		if yn.StateSchema != nil {
			schema, err := NewSchema(yn.StateSchema)
			if err != nil {
				return nil, fmt.Errorf("charter: node %q state schema: %w", yn.ID, err)
			}
			n.StateSchema = schema
		}

		for _, toolName := range yn.Tools {
			t, ok := existingTools[toolName]
			if !ok {
				return nil, fmt.Errorf("charter: node %q references unknown tool %q", yn.ID, toolName)
			}
			n.Tools[toolName] = t
		}

		for name, yt := range yn.Transitions {
			if yt.Ref == "" {
				return nil, fmt.Errorf("charter: node %q transition %q missing ref", yn.ID, name)
			}
			if _, ok := existingTransitions[yt.Ref]; !ok {
				return nil, fmt.Errorf("charter: node %q transition %q refs unknown transition %q", yn.ID, name, yt.Ref)
			}
			n.Transitions[name] = &Transition{Name: name, Kind: TransitionKindRef, Ref: yt.Ref}
		}

		nodes = append(nodes, n)
	}
	return nodes, nil
}
