package toolpipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
	"github.com/chartrun/machine/toolpipeline"
)

func newMachine(t *testing.T, ch *charter.Charter, node *charter.Node) (*instance.Machine, *instance.Instance) {
	t.Helper()
	root := instance.CreateInstance(node, nil, nil)
	m, err := instance.CreateMachine(ch, instance.MachineConfig{Instance: root})
	require.NoError(t, err)
	return m, root
}

func TestProcessUpdateStateBuiltinEmitsStateMessage(t *testing.T) {
	node := charter.NewNode("agent")
	node.InitialState = map[string]any{"count": 0.0}
	ch, err := charter.CreateCharter(charter.CharterConfig{Name: "demo", Executor: noopExecutor(), Nodes: []*charter.Node{node}})
	require.NoError(t, err)
	m, root := newMachine(t, ch, node)

	calls := []charter.ToolUseBlock{{ID: "call_1", Name: "updateState", Input: map[string]any{"count": 5.0}}}
	out, err := toolpipeline.Process(context.Background(), toolpipeline.Input{
		Charter: ch, Machine: m, Leaf: instance.Leaf{Instance: root}, Calls: calls, SourceInstanceID: root.ID,
	})
	require.NoError(t, err)
	require.Equal(t, charter.YieldToolUse, out.YieldReason)
	require.Equal(t, 5.0, root.State["count"])

	queued := m.DrainQueue()
	require.Len(t, queued, 2)
	_, ok := queued[0].Blocks[0].(charter.InstanceBlock)
	require.True(t, ok)
	_, ok = queued[1].Blocks[0].(charter.ToolResultBlock)
	require.True(t, ok)
}

func TestProcessTerminalToolYieldsEndTurn(t *testing.T) {
	echo := &charter.Tool{
		Name:     "echo",
		Terminal: true,
		Execute: func(_ context.Context, input map[string]any, _ charter.ToolContext) (charter.ToolResult, error) {
			return charter.PlainToolResult(input["text"]), nil
		},
	}
	node := charter.NewNode("agent")
	node.Tools["echo"] = echo
	ch, err := charter.CreateCharter(charter.CharterConfig{Name: "demo", Executor: noopExecutor(), Nodes: []*charter.Node{node}})
	require.NoError(t, err)
	m, root := newMachine(t, ch, node)

	calls := []charter.ToolUseBlock{{ID: "call_1", Name: "echo", Input: map[string]any{"text": "hi"}}}
	out, err := toolpipeline.Process(context.Background(), toolpipeline.Input{
		Charter: ch, Machine: m, Leaf: instance.Leaf{Instance: root}, Calls: calls, SourceInstanceID: root.ID,
	})
	require.NoError(t, err)
	require.Equal(t, charter.YieldEndTurn, out.YieldReason)
}

func TestProcessUnknownToolEmitsErrorResult(t *testing.T) {
	node := charter.NewNode("agent")
	ch, err := charter.CreateCharter(charter.CharterConfig{Name: "demo", Executor: noopExecutor(), Nodes: []*charter.Node{node}})
	require.NoError(t, err)
	m, root := newMachine(t, ch, node)

	calls := []charter.ToolUseBlock{{ID: "call_1", Name: "ghost", Input: map[string]any{}}}
	out, err := toolpipeline.Process(context.Background(), toolpipeline.Input{
		Charter: ch, Machine: m, Leaf: instance.Leaf{Instance: root}, Calls: calls, SourceInstanceID: root.ID,
	})
	require.NoError(t, err)
	require.Equal(t, charter.YieldToolUse, out.YieldReason)

	queued := m.DrainQueue()
	require.Len(t, queued, 1)
	block, ok := queued[0].Blocks[0].(charter.ToolResultBlock)
	require.True(t, ok)
	require.True(t, block.IsError)
}

func TestProcessServerToolIsSkippedWithoutResult(t *testing.T) {
	node := charter.NewNode("agent")
	ch, err := charter.CreateCharter(charter.CharterConfig{Name: "demo", Executor: noopExecutor(), Nodes: []*charter.Node{node}})
	require.NoError(t, err)
	m, root := newMachine(t, ch, node)

	calls := []charter.ToolUseBlock{{ID: "call_1", Name: "bash", Input: map[string]any{}}}
	out, err := toolpipeline.Process(context.Background(), toolpipeline.Input{
		Charter: ch, Machine: m, Leaf: instance.Leaf{Instance: root}, Calls: calls, SourceInstanceID: root.ID,
	})
	require.NoError(t, err)
	require.Equal(t, charter.YieldToolUse, out.YieldReason)
	require.Empty(t, m.DrainQueue())
}

func TestProcessTransitionCallAppliesTransition(t *testing.T) {
	next := charter.NewNode("next")
	next.InitialState = map[string]any{}
	start := charter.NewNode("start")
	start.Transitions["advance"] = &charter.Transition{Name: "advance", Kind: charter.TransitionKindSerial, TargetNodeID: "next"}

	ch, err := charter.CreateCharter(charter.CharterConfig{Name: "demo", Executor: noopExecutor(), Nodes: []*charter.Node{start, next}})
	require.NoError(t, err)
	m, root := newMachine(t, ch, start)

	calls := []charter.ToolUseBlock{{ID: "call_1", Name: "transition", Input: map[string]any{"to": "advance"}}}
	out, err := toolpipeline.Process(context.Background(), toolpipeline.Input{
		Charter: ch, Machine: m, Leaf: instance.Leaf{Instance: root}, Calls: calls, SourceInstanceID: root.ID,
	})
	require.NoError(t, err)
	require.Equal(t, charter.YieldToolUse, out.YieldReason)
	require.Same(t, next, root.Node)
}

func TestProcessSuspendingToolYieldsSuspend(t *testing.T) {
	pause := &charter.Tool{
		Name: "pause",
		Execute: func(context.Context, map[string]any, charter.ToolContext) (charter.ToolResult, error) {
			return charter.SuspendToolResult(charter.SuspendRequest{SuspendID: "wait-1"}), nil
		},
	}
	node := charter.NewNode("agent")
	node.Tools["pause"] = pause
	ch, err := charter.CreateCharter(charter.CharterConfig{Name: "demo", Executor: noopExecutor(), Nodes: []*charter.Node{node}})
	require.NoError(t, err)
	m, root := newMachine(t, ch, node)

	calls := []charter.ToolUseBlock{{ID: "call_1", Name: "pause", Input: map[string]any{}}}
	out, err := toolpipeline.Process(context.Background(), toolpipeline.Input{
		Charter: ch, Machine: m, Leaf: instance.Leaf{Instance: root}, Calls: calls, SourceInstanceID: root.ID,
	})
	require.NoError(t, err)
	require.Equal(t, charter.YieldSuspend, out.YieldReason)
	require.NotNil(t, root.Suspended)
}

func noopExecutor() charter.Executor {
	return executorFunc(func(context.Context, *charter.Charter, charter.ExecutorInput) (charter.ExecutorOutput, error) {
		return charter.ExecutorOutput{YieldReason: charter.YieldEndTurn}, nil
	})
}

type executorFunc func(context.Context, *charter.Charter, charter.ExecutorInput) (charter.ExecutorOutput, error)

func (f executorFunc) Run(ctx context.Context, ch *charter.Charter, in charter.ExecutorInput) (charter.ExecutorOutput, error) {
	return f(ctx, ch, in)
}
