package transition_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
	"github.com/chartrun/machine/transition"
)

func TestResolveSerialTransitionToRegisteredTarget(t *testing.T) {
	next := charter.NewNode("next")
	next.InitialState = map[string]any{"x": 1.0}
	tr := &charter.Transition{Name: "advance", Kind: charter.TransitionKindSerial, TargetNodeID: "next"}
	ch := &charter.Charter{Nodes: map[string]*charter.Node{"next": next}}

	start := charter.NewNode("start")
	inst := instance.NewInstance("i1", start, nil, nil)
	leaf := instance.Leaf{Instance: inst}

	result, err := transition.Resolve(context.Background(), ch, leaf, tr, nil, nil)
	require.NoError(t, err)
	require.Equal(t, charter.TransitionResultTo, result.Kind)
	require.Same(t, next, result.TransitionTo.Node)
}

func TestResolveRefTransitionIndirectsThroughCharter(t *testing.T) {
	next := charter.NewNode("next")
	registered := &charter.Transition{Name: "go", Kind: charter.TransitionKindSerial, TargetNodeID: "next"}
	refTr := &charter.Transition{Name: "alias", Kind: charter.TransitionKindRef, Ref: "go"}

	ch := &charter.Charter{
		Nodes:       map[string]*charter.Node{"next": next},
		Transitions: map[string]*charter.Transition{"go": registered},
	}
	inst := instance.NewInstance("i1", charter.NewNode("start"), nil, nil)
	leaf := instance.Leaf{Instance: inst}

	result, err := transition.Resolve(context.Background(), ch, leaf, refTr, nil, nil)
	require.NoError(t, err)
	require.Equal(t, charter.TransitionResultTo, result.Kind)
	require.Same(t, next, result.TransitionTo.Node)
}

func TestResolveRefTransitionUnknownRefErrors(t *testing.T) {
	refTr := &charter.Transition{Name: "alias", Kind: charter.TransitionKindRef, Ref: "missing"}
	ch := &charter.Charter{Transitions: map[string]*charter.Transition{}}
	inst := instance.NewInstance("i1", charter.NewNode("start"), nil, nil)
	_, err := transition.Resolve(context.Background(), ch, instance.Leaf{Instance: inst}, refTr, nil, nil)
	require.Error(t, err)
}

func TestApplyTransitionToResetsChildrenAndSuspension(t *testing.T) {
	next := charter.NewNode("next")
	start := charter.NewNode("start")
	inst := instance.NewInstance("i1", start, nil, nil)
	inst.Children = []*instance.Instance{instance.NewInstance("child", start, nil, nil)}
	inst.Suspended = &instance.SuspendInfo{SuspendID: "old"}

	result := charter.TransitionTo(next, map[string]any{"y": 2.0}, nil)
	applied, err := transition.Apply(instance.Leaf{Instance: inst}, result)
	require.NoError(t, err)
	require.Equal(t, charter.YieldToolUse, applied.YieldReason)
	require.Same(t, next, inst.Node)
	require.Empty(t, inst.Children)
	require.Nil(t, inst.Suspended)
	require.Equal(t, map[string]any{"y": 2.0}, inst.State)
}

func TestApplyTransitionToWithNoStateAndNoInitialStateIsMisuse(t *testing.T) {
	bare := charter.NewNode("bare")
	inst := instance.NewInstance("i1", charter.NewNode("start"), nil, nil)
	result := charter.TransitionTo(bare, nil, nil)
	_, err := transition.Apply(instance.Leaf{Instance: inst}, result)
	require.Error(t, err)
	var misuse *transition.MisuseError
	require.ErrorAs(t, err, &misuse)
}

func TestApplySpawnAppendsChildren(t *testing.T) {
	workerNode := charter.NewNode("worker")
	workerNode.InitialState = map[string]any{}
	parent := instance.NewInstance("parent", charter.NewNode("primary"), nil, nil)

	result := charter.SpawnChildren(charter.ChildSpec{Node: workerNode})
	applied, err := transition.Apply(instance.Leaf{Instance: parent}, result)
	require.NoError(t, err)
	require.Equal(t, charter.YieldToolUse, applied.YieldReason)
	require.Len(t, parent.Children, 1)
	require.Same(t, workerNode, parent.Children[0].Node)
}

func TestApplySuspendMarksInstance(t *testing.T) {
	inst := instance.NewInstance("i1", charter.NewNode("waiter"), nil, nil)
	result := charter.Suspend("wait-1", "need approval", map[string]any{"k": "v"})
	applied, err := transition.Apply(instance.Leaf{Instance: inst}, result)
	require.NoError(t, err)
	require.Equal(t, charter.YieldSuspend, applied.YieldReason)
	require.NotNil(t, inst.Suspended)
	require.Equal(t, "wait-1", inst.Suspended.SuspendID)
	require.Equal(t, "wait-1", applied.SuspendInfo.SuspendID)
}

func TestApplyCedeReturnsContentWithoutTreeMutation(t *testing.T) {
	childNode := charter.NewNode("child")
	inst := instance.NewInstance("i1", childNode, nil, nil)
	result := charter.Cede("all done")
	applied, err := transition.Apply(instance.Leaf{Instance: inst}, result)
	require.NoError(t, err)
	require.Equal(t, charter.YieldCede, applied.YieldReason)
	require.Equal(t, "all done", applied.CedeContent)
	// Cede performs no tree mutation itself: the caller (machine loop)
	// excises the instance once it observes YieldCede.
	require.Same(t, childNode, inst.Node)
	require.Nil(t, inst.Suspended)
}
