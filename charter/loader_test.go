package charter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chartrun/machine/charter"
)

func TestLoadYAMLNodesBuildsNodesWithResolvedRefs(t *testing.T) {
	doc := []byte(`
nodes:
  - id: greeter
    instructions: say hello
    tools: [search]
    transitions:
      advance:
        ref: go-next
    initialState:
      greeted: false
  - id: closer
    instructions: wrap up
`)

	tools := map[string]*charter.Tool{"search": {Name: "search"}}
	transitions := map[string]*charter.Transition{
		"go-next": {Name: "go-next", Kind: charter.TransitionKindSerial, TargetNodeID: "closer"},
	}

	nodes, err := charter.LoadYAMLNodes(doc, tools, transitions)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	var greeter *charter.Node
	for _, n := range nodes {
		if n.ID == "greeter" {
			greeter = n
		}
	}
	require.NotNil(t, greeter)
	require.Equal(t, "say hello", greeter.Instructions)
	require.Contains(t, greeter.Tools, "search")
	require.Contains(t, greeter.Transitions, "advance")
	require.Equal(t, charter.TransitionKindRef, greeter.Transitions["advance"].Kind)
	require.Equal(t, "go-next", greeter.Transitions["advance"].Ref)
	require.Equal(t, false, greeter.InitialState["greeted"])
}

func TestLoadYAMLNodesRejectsUnknownToolRef(t *testing.T) {
	doc := []byte(`
nodes:
  - id: greeter
    instructions: say hello
    tools: [ghost]
`)
	_, err := charter.LoadYAMLNodes(doc, map[string]*charter.Tool{}, map[string]*charter.Transition{})
	require.Error(t, err)
}

func TestLoadYAMLNodesRejectsUnknownTransitionRef(t *testing.T) {
	doc := []byte(`
nodes:
  - id: greeter
    instructions: say hello
    transitions:
      advance:
        ref: ghost
`)
	_, err := charter.LoadYAMLNodes(doc, map[string]*charter.Tool{}, map[string]*charter.Transition{})
	require.Error(t, err)
}

func TestLoadYAMLNodesRejectsMissingID(t *testing.T) {
	doc := []byte(`
nodes:
  - instructions: say hello
`)
	_, err := charter.LoadYAMLNodes(doc, map[string]*charter.Tool{}, map[string]*charter.Transition{})
	require.Error(t, err)
}

func TestLoadYAMLNodesCompilesStateSchema(t *testing.T) {
	doc := []byte(`
nodes:
  - id: greeter
    instructions: say hello
    stateSchema:
      type: object
      properties:
        count:
          type: number
`)
	nodes, err := charter.LoadYAMLNodes(doc, map[string]*charter.Tool{}, map[string]*charter.Transition{})
	require.NoError(t, err)
	require.NotNil(t, nodes[0].StateSchema)
	require.NoError(t, nodes[0].StateSchema.Validate(map[string]any{"count": 1.0}))
}
