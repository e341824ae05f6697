package charter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func noopExecutor() Executor {
	return executorFunc(func(ctx context.Context, ch *Charter, in ExecutorInput) (ExecutorOutput, error) {
		return ExecutorOutput{YieldReason: YieldEndTurn}, nil
	})
}

type executorFunc func(ctx context.Context, ch *Charter, in ExecutorInput) (ExecutorOutput, error)

func (f executorFunc) Run(ctx context.Context, ch *Charter, in ExecutorInput) (ExecutorOutput, error) {
	return f(ctx, ch, in)
}

func TestCreateCharterRequiresExecutor(t *testing.T) {
	_, err := CreateCharter(CharterConfig{Name: "demo"})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCreateCharterRejectsDuplicateCharterTool(t *testing.T) {
	tool := &Tool{Name: "search"}
	_, err := CreateCharter(CharterConfig{
		Name:     "demo",
		Executor: noopExecutor(),
		Tools:    []*Tool{tool, {Name: "search"}},
	})
	require.Error(t, err)
}

func TestCreateCharterRejectsNodePackToolCollision(t *testing.T) {
	pack := NewPack("memory")
	pack.Tools["remember"] = &Tool{Name: "remember"}

	node := NewNode("agent")
	node.Packs = []string{"memory"}
	node.Tools["remember"] = &Tool{Name: "remember"}

	_, err := CreateCharter(CharterConfig{
		Name:     "demo",
		Executor: noopExecutor(),
		Nodes:    []*Node{node},
		Packs:    []*Pack{pack},
	})
	require.Error(t, err)
}

func TestCreateCharterRejectsWorkerWithPacks(t *testing.T) {
	pack := NewPack("memory")
	node := NewNode("worker")
	node.Worker = true
	node.Packs = []string{"memory"}

	_, err := CreateCharter(CharterConfig{
		Name:     "demo",
		Executor: noopExecutor(),
		Nodes:    []*Node{node},
		Packs:    []*Pack{pack},
	})
	require.Error(t, err)
}

func TestCreateCharterRejectsDanglingTransitionTarget(t *testing.T) {
	node := NewNode("agent")
	node.Transitions["advance"] = &Transition{
		Name: "advance", Kind: TransitionKindSerial, TargetNodeID: "missing",
	}

	_, err := CreateCharter(CharterConfig{
		Name:     "demo",
		Executor: noopExecutor(),
		Nodes:    []*Node{node},
	})
	require.Error(t, err)
}

func TestCreateCharterAcceptsValidGraph(t *testing.T) {
	next := NewNode("next")
	node := NewNode("agent")
	node.Transitions["advance"] = &Transition{
		Name: "advance", Kind: TransitionKindSerial, TargetNodeID: "next",
	}

	ch, err := CreateCharter(CharterConfig{
		Name:     "demo",
		Executor: noopExecutor(),
		Nodes:    []*Node{node, next},
	})
	require.NoError(t, err)
	require.Len(t, ch.Nodes, 2)
}
