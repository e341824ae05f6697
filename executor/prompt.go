// Package executor implements charter.Executor: the standard inference
// driver that builds a system prompt, gathers tool definitions by
// resolver priority, calls an inference.Backend, and returns the response's
// tool_use blocks for the caller to run through the tool pipeline (§4.6).
package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chartrun/machine/charter"
)

// defaultWarnAtStepsRemaining is used when ExecutorInput.WarnAtStepsRemaining
// is left at zero (supplemental feature, SPEC_FULL.md §C.4).
const defaultWarnAtStepsRemaining = 5

// buildSystemPrompt constructs the default system prompt: node
// instructions, current state, available transitions, ancestor state
// summaries, active pack states, and a step-budget warning (§4.6 step 1).
// Worker nodes omit pack context.
func buildSystemPrompt(in charter.ExecutorInput) string {
	var b strings.Builder

	b.WriteString(in.Node.Instructions)
	b.WriteString("\n\n")

	b.WriteString("Current state:\n")
	b.WriteString(toJSON(in.State))
	b.WriteString("\n\n")

	if len(in.Node.Transitions) > 0 {
		b.WriteString("Available transitions:\n")
		for name, tr := range in.Node.Transitions {
			b.WriteString(fmt.Sprintf("- %s: %s\n", name, tr.Description))
		}
		b.WriteString("\n")
	}

	if len(in.Ancestors) > 0 {
		b.WriteString("Ancestor context (read-only):\n")
		for i, anc := range in.Ancestors {
			b.WriteString(fmt.Sprintf("- ancestor %d (node %s): %s\n", i, anc.Node.ID, toJSON(anc.State)))
		}
		b.WriteString("\n")
	}

	if !in.Worker && len(in.PackStates) > 0 {
		b.WriteString("Active packs:\n")
		for name, st := range in.PackStates {
			b.WriteString(fmt.Sprintf("- %s: %s\n", name, toJSON(st)))
		}
		b.WriteString("\n")
	}

	warnAt := in.WarnAtStepsRemaining
	if warnAt == 0 {
		warnAt = defaultWarnAtStepsRemaining
	}
	if in.MaxSteps > 0 {
		remaining := in.MaxSteps - in.CurrentStep
		if remaining <= warnAt {
			b.WriteString(fmt.Sprintf("Warning: only %d step(s) remain in this turn's budget.\n", remaining))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func toJSON(v any) string {
	if v == nil {
		v = map[string]any{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
