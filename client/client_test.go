package client_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/client"
	"github.com/chartrun/machine/instance"
)

func TestCreateDryClientInstanceMergesNodeAndPackCommands(t *testing.T) {
	pack := charter.NewPack("memory")
	pack.Commands["forget"] = &charter.Command{Description: "forget everything"}

	node := charter.NewNode("agent")
	node.Instructions = "be helpful"
	node.Packs = []string{"memory"}
	node.Commands["reset"] = &charter.Command{Description: "reset state"}

	ch := &charter.Charter{
		Packs: map[string]*charter.Pack{"memory": pack},
	}

	root := instance.NewInstance("root", node, map[string]any{"k": "v"}, nil)
	root.PackStates = map[string]map[string]any{"memory": {"seen": 1.0}}

	dry := client.CreateDryClientInstance(ch, root, true)
	require.Equal(t, "root", dry.ID)
	require.Equal(t, "be helpful", dry.Node.Instructions)
	require.Contains(t, dry.Node.Commands, "reset")
	require.Contains(t, dry.Node.Commands, "forget")
	require.Equal(t, "forget everything", dry.Node.Commands["forget"].Description)
	require.Equal(t, map[string]any{"seen": 1.0}, dry.PackStates["memory"])
}

func TestCreateDryClientInstanceOmitsPackStatesOnNonRoot(t *testing.T) {
	node := charter.NewNode("agent")
	ch := &charter.Charter{Packs: map[string]*charter.Pack{}}
	child := instance.NewInstance("child", node, nil, nil)
	child.PackStates = map[string]map[string]any{"memory": {"seen": 1.0}}

	dry := client.CreateDryClientInstance(ch, child, false)
	require.Nil(t, dry.PackStates)
}

func TestHydrateClientInstanceBuildsCallableCommands(t *testing.T) {
	node := charter.NewNode("agent")
	node.Commands["reset"] = &charter.Command{Description: "reset state"}
	ch := &charter.Charter{Packs: map[string]*charter.Pack{}}

	root := instance.NewInstance("root", node, map[string]any{}, nil)
	dry := client.CreateDryClientInstance(ch, root, true)
	hydrated := client.HydrateClientInstance(dry)

	require.Contains(t, hydrated.Commands, "reset")
	req := hydrated.Commands["reset"](map[string]any{"force": true})
	require.Equal(t, "command", req.Type)
	require.Equal(t, "reset", req.Name)
	require.Equal(t, map[string]any{"force": true}, req.Input)
}

func TestHydrateClientInstanceRecursesIntoChildren(t *testing.T) {
	node := charter.NewNode("agent")
	ch := &charter.Charter{Packs: map[string]*charter.Pack{}}

	root := instance.NewInstance("root", node, map[string]any{}, nil)
	root.Children = []*instance.Instance{instance.NewInstance("child", node, map[string]any{}, nil)}

	dry := client.CreateDryClientInstance(ch, root, true)
	hydrated := client.HydrateClientInstance(dry)
	require.Len(t, hydrated.Children, 1)
	require.Equal(t, "child", hydrated.Children[0].ID)
}
