package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
	"github.com/chartrun/machine/resolver"
)

func TestResolveToolPrefersNodeOverAncestorOverCharterOverPack(t *testing.T) {
	pack := charter.NewPack("memory")
	pack.Tools["lookup"] = &charter.Tool{Name: "lookup", Description: "pack"}

	charterTool := &charter.Tool{Name: "lookup", Description: "charter"}

	ancestorNode := charter.NewNode("ancestor")
	ancestorNode.Tools["lookup"] = &charter.Tool{Name: "lookup", Description: "ancestor"}

	leafNode := charter.NewNode("leaf")
	leafNode.Packs = []string{"memory"}

	ch := &charter.Charter{
		Tools: map[string]*charter.Tool{"lookup": charterTool},
		Packs: map[string]*charter.Pack{"memory": pack},
	}

	root := instance.NewInstance("root", ancestorNode, nil, nil)
	leaf := instance.NewInstance("leaf", leafNode, nil, nil)

	// Ancestor, charter and pack all declare it: the ancestor wins.
	l := instance.Leaf{Instance: leaf, Ancestors: []*instance.Instance{root}}
	resolved, ok := resolver.ResolveTool(ch, l, "lookup")
	require.True(t, ok)
	require.Equal(t, "ancestor", resolved.Tool.Description)
	require.Equal(t, "instance", resolved.Owner.Kind)
	require.Equal(t, "root", resolved.Owner.InstanceID)

	// Without the ancestor, charter tool should shadow the pack tool.
	l2 := instance.Leaf{Instance: leaf}
	resolved2, ok := resolver.ResolveTool(ch, l2, "lookup")
	require.True(t, ok)
	require.Equal(t, "charter", resolved2.Tool.Description)

	// Remove charter tool entirely: falls through to the pack.
	ch.Tools = map[string]*charter.Tool{}
	resolved3, ok := resolver.ResolveTool(ch, l2, "lookup")
	require.True(t, ok)
	require.Equal(t, "pack", resolved3.Tool.Description)
	require.Equal(t, "pack", resolved3.Owner.Kind)
	require.Equal(t, "memory", resolved3.Owner.PackName)
}

func TestResolveToolNodeShadowsEverything(t *testing.T) {
	leafNode := charter.NewNode("leaf")
	leafNode.Tools["lookup"] = &charter.Tool{Name: "lookup", Description: "node"}

	ch := &charter.Charter{
		Tools: map[string]*charter.Tool{"lookup": {Name: "lookup", Description: "charter"}},
		Packs: map[string]*charter.Pack{},
	}
	leaf := instance.NewInstance("leaf", leafNode, nil, nil)
	resolved, ok := resolver.ResolveTool(ch, instance.Leaf{Instance: leaf}, "lookup")
	require.True(t, ok)
	require.Equal(t, "node", resolved.Tool.Description)
}

func TestResolveToolMissingReturnsFalse(t *testing.T) {
	ch := &charter.Charter{Tools: map[string]*charter.Tool{}, Packs: map[string]*charter.Pack{}}
	leaf := instance.NewInstance("leaf", charter.NewNode("leaf"), nil, nil)
	_, ok := resolver.ResolveTool(ch, instance.Leaf{Instance: leaf}, "missing")
	require.False(t, ok)
}

func TestResolveTransitionDoesNotWalkAncestors(t *testing.T) {
	ancestorNode := charter.NewNode("ancestor")
	ancestorNode.Transitions["advance"] = &charter.Transition{Name: "advance", Kind: charter.TransitionKindSerial}

	leafNode := charter.NewNode("leaf")
	root := instance.NewInstance("root", ancestorNode, nil, nil)
	leaf := instance.NewInstance("leaf", leafNode, nil, nil)

	_, ok := resolver.ResolveTransition(instance.Leaf{Instance: leaf, Ancestors: []*instance.Instance{root}}, "advance")
	require.False(t, ok)
}

func TestResolveRefNodeAndTransitionAndTool(t *testing.T) {
	target := charter.NewNode("target")
	tr := &charter.Transition{Name: "go", Kind: charter.TransitionKindSerial, TargetNodeID: "target"}
	tool := &charter.Tool{Name: "search"}

	ch := &charter.Charter{
		Nodes:       map[string]*charter.Node{"target": target},
		Transitions: map[string]*charter.Transition{"go": tr},
		Tools:       map[string]*charter.Tool{"search": tool},
	}

	n, err := resolver.ResolveRefNode(ch, "target")
	require.NoError(t, err)
	require.Same(t, target, n)

	_, err = resolver.ResolveRefNode(ch, "missing")
	require.Error(t, err)

	got, err := resolver.ResolveRefTransition(ch, "go")
	require.NoError(t, err)
	require.Same(t, tr, got)

	_, err = resolver.ResolveRefTransition(ch, "missing")
	require.Error(t, err)

	gotTool, err := resolver.ResolveRefTool(ch, "search")
	require.NoError(t, err)
	require.Same(t, tool, gotTool)

	_, err = resolver.ResolveRefTool(ch, "missing")
	require.Error(t, err)
}
