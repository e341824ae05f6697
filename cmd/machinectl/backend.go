package main

import (
	"context"

	"github.com/chartrun/machine/inference"
)

// echoBackend is a stub inference.Backend for the demo CLI: it always
// calls the "echo" tool with the user's input as the argument, so the
// whole loop (executor -> tool pipeline -> end_turn) runs without needing
// real model credentials. A production caller would instead construct
// inference/anthropic.Client.
type echoBackend struct{}

func newEchoBackend() inference.Backend { return echoBackend{} }

func (echoBackend) Infer(_ context.Context, req inference.Request) (inference.Response, error) {
	if req.User == "" {
		return inference.Response{
			Content:    []inference.ContentBlock{{Type: "text", Text: "ready"}},
			StopReason: inference.StopEndTurn,
		}, nil
	}
	return inference.Response{
		Content: []inference.ContentBlock{
			{Type: "tool_use", ID: "call_1", Name: "echo", Input: map[string]any{"text": req.User}},
		},
		StopReason: inference.StopToolUse,
	}, nil
}
