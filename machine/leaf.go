package machine

import (
	"context"
	"fmt"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
	"github.com/chartrun/machine/toolpipeline"
)

// leafOutcome is what running one leaf for one step produced, before the
// results of every leaf in the step are folded together (§4.7 step 2d).
type leafOutcome struct {
	leaf        instance.Leaf
	response    string
	yieldReason charter.YieldReason
	cedeContent any
	suspendInfo *instance.SuspendInfo
	err         error
}

// runLeaf drives one leaf through exactly one executor call and, if the
// response requested tool use, one pass through the tool pipeline (§4.6
// steps 1-9). It mutates m and leaf.Instance directly; the caller is
// responsible for draining m's queue once every leaf in the step has run.
func runLeaf(ctx context.Context, m *instance.Machine, leaf instance.Leaf, worker bool, userInput string, step int, opts Options) leafOutcome {
	in := buildExecutorInput(m, leaf, worker, userInput, step, opts)

	out, err := m.Charter.Executor.Run(ctx, m.Charter, in)
	if err != nil {
		return leafOutcome{leaf: leaf, err: fmt.Errorf("executor: %w", err)}
	}

	m.Enqueue(out.Messages...)

	if out.YieldReason != charter.YieldToolUse {
		return leafOutcome{leaf: leaf, response: out.ResponseText, yieldReason: out.YieldReason}
	}

	var calls []charter.ToolUseBlock
	for _, msg := range out.Messages {
		for _, b := range msg.Blocks {
			if tu, ok := b.(charter.ToolUseBlock); ok {
				calls = append(calls, tu)
			}
		}
	}
	if len(calls) == 0 {
		return leafOutcome{leaf: leaf, response: out.ResponseText, yieldReason: charter.YieldEndTurn}
	}

	pOut, err := toolpipeline.Process(ctx, toolpipeline.Input{
		Charter:          m.Charter,
		Machine:          m,
		Leaf:             leaf,
		Calls:            calls,
		SourceInstanceID: leaf.Instance.ID,
	})
	if err != nil {
		return leafOutcome{leaf: leaf, err: fmt.Errorf("tool pipeline: %w", err)}
	}

	return leafOutcome{
		leaf:        leaf,
		response:    out.ResponseText,
		yieldReason: pOut.YieldReason,
		cedeContent: pOut.CedeContent,
		suspendInfo: pOut.SuspendInfo,
	}
}

// buildExecutorInput adapts a live leaf plus machine state into the
// self-contained snapshot charter.Executor.Run expects (§4.6).
func buildExecutorInput(m *instance.Machine, leaf instance.Leaf, worker bool, userInput string, step int, opts Options) charter.ExecutorInput {
	ancestors := make([]charter.AncestorView, 0, len(leaf.Ancestors))
	for _, anc := range leaf.Ancestors {
		ancestors = append(ancestors, charter.AncestorView{Node: anc.Node, State: anc.State})
	}

	var packStates map[string]map[string]any
	if !worker {
		packStates = map[string]map[string]any{}
		for _, name := range leaf.Instance.Node.Packs {
			packStates[name] = m.PackState(name)
		}
	}

	return charter.ExecutorInput{
		InstanceID:           leaf.Instance.ID,
		Node:                 leaf.Instance.Node,
		Ancestors:            ancestors,
		State:                leaf.Instance.State,
		PackStates:           packStates,
		History:              m.History,
		UserInput:            userInput,
		CurrentStep:          step,
		MaxSteps:             opts.maxSteps(),
		WarnAtStepsRemaining: opts.WarnAtStepsRemaining,
		Worker:               worker,
		ExecutorConfig:       leaf.Instance.ExecutorConfig,
	}
}
