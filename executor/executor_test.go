package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/executor"
	"github.com/chartrun/machine/inference"
)

type stubBackend struct {
	resp inference.Response
	err  error
	req  inference.Request
}

func (b *stubBackend) Infer(_ context.Context, req inference.Request) (inference.Response, error) {
	b.req = req
	return b.resp, b.err
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := executor.New(nil, executor.Options{})
	require.Error(t, err)
}

func TestRunTranslatesEndTurnResponse(t *testing.T) {
	backend := &stubBackend{resp: inference.Response{
		Content:    []inference.ContentBlock{{Type: "text", Text: "hello"}},
		StopReason: inference.StopEndTurn,
	}}
	exec, err := executor.New(backend, executor.Options{})
	require.NoError(t, err)

	node := charter.NewNode("agent")
	node.Instructions = "be nice"
	out, err := exec.Run(context.Background(), &charter.Charter{Tools: map[string]*charter.Tool{}, Packs: map[string]*charter.Pack{}}, charter.ExecutorInput{
		Node: node, UserInput: "hi",
	})
	require.NoError(t, err)
	require.Equal(t, charter.YieldEndTurn, out.YieldReason)
	require.Equal(t, "hello", out.ResponseText)
	require.Equal(t, "hi", backend.req.User)
}

func TestRunTranslatesToolUseResponse(t *testing.T) {
	backend := &stubBackend{resp: inference.Response{
		Content:    []inference.ContentBlock{{Type: "tool_use", ID: "c1", Name: "echo", Input: map[string]any{"x": 1.0}}},
		StopReason: inference.StopToolUse,
	}}
	exec, err := executor.New(backend, executor.Options{})
	require.NoError(t, err)

	node := charter.NewNode("agent")
	out, err := exec.Run(context.Background(), &charter.Charter{Tools: map[string]*charter.Tool{}, Packs: map[string]*charter.Pack{}}, charter.ExecutorInput{Node: node})
	require.NoError(t, err)
	require.Equal(t, charter.YieldToolUse, out.YieldReason)
	require.Len(t, out.Messages, 1)
	tu, ok := out.Messages[0].Blocks[0].(charter.ToolUseBlock)
	require.True(t, ok)
	require.Equal(t, "echo", tu.Name)
}

func TestRunUsesCharterPromptBuilderOverride(t *testing.T) {
	backend := &stubBackend{resp: inference.Response{StopReason: inference.StopEndTurn}}
	exec, err := executor.New(backend, executor.Options{})
	require.NoError(t, err)

	ch := &charter.Charter{
		Tools: map[string]*charter.Tool{}, Packs: map[string]*charter.Pack{},
		PromptBuilder: func(in charter.ExecutorInput) string { return "custom prompt" },
	}
	_, err = exec.Run(context.Background(), ch, charter.ExecutorInput{Node: charter.NewNode("agent")})
	require.NoError(t, err)
	require.Equal(t, "custom prompt", backend.req.System)
}

func TestRunGathersToolsByShadowingPriority(t *testing.T) {
	backend := &stubBackend{resp: inference.Response{StopReason: inference.StopEndTurn}}
	exec, err := executor.New(backend, executor.Options{})
	require.NoError(t, err)

	node := charter.NewNode("agent")
	node.Tools["lookup"] = &charter.Tool{Name: "lookup", Description: "node wins"}
	ch := &charter.Charter{
		Tools: map[string]*charter.Tool{"lookup": {Name: "lookup", Description: "charter loses"}},
		Packs: map[string]*charter.Pack{},
	}

	_, err = exec.Run(context.Background(), ch, charter.ExecutorInput{Node: node})
	require.NoError(t, err)

	var found inference.ToolDef
	for _, d := range backend.req.Tools {
		if d.Name == "lookup" {
			found = d
		}
	}
	require.Equal(t, "node wins", found.Description)
}
