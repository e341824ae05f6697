package transition

import (
	"time"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
)

// ApplyResult is what Apply produces: the yield reason the machine loop
// should fold into the step, plus any cede content or suspend info the
// loop needs to carry forward.
type ApplyResult struct {
	YieldReason charter.YieldReason
	CedeContent any
	SuspendInfo *instance.SuspendInfo
}

// Apply mutates leaf.Instance (and, for spawn, its children) according to
// result (§4.4). Cede performs no tree mutation here: per §4.4 the parent
// excises the instance, which is the machine loop's job once it observes
// YieldReason == charter.YieldCede (§4.7 step f).
func Apply(leaf instance.Leaf, result charter.TransitionResult) (ApplyResult, error) {
	switch result.Kind {
	case charter.TransitionResultTo:
		return applyTransitionTo(leaf.Instance, result.TransitionTo)

	case charter.TransitionResultSpawn:
		return applySpawn(leaf.Instance, result.Spawn)

	case charter.TransitionResultCede:
		content := any(nil)
		if result.Cede != nil {
			content = result.Cede.Content
		}
		return ApplyResult{YieldReason: charter.YieldCede, CedeContent: content}, nil

	case charter.TransitionResultSuspend:
		return applySuspend(leaf.Instance, result.Suspend)

	default:
		return ApplyResult{}, &MisuseError{Reason: "unknown transition result kind"}
	}
}

func applyTransitionTo(target *instance.Instance, outcome *charter.TransitionToOutcome) (ApplyResult, error) {
	if outcome == nil || outcome.Node == nil {
		return ApplyResult{}, &MisuseError{Reason: "transition-to requires a target node"}
	}
	state := outcome.State
	if state == nil {
		if outcome.Node.InitialState == nil {
			return ApplyResult{}, &MisuseError{Reason: "transition-to supplied no state and target node has no initial state"}
		}
		state = cloneMap(outcome.Node.InitialState)
	}
	execCfg := outcome.ExecutorConfig
	if execCfg == nil {
		execCfg = outcome.Node.ExecutorConfig
	}
	target.Node = outcome.Node
	target.State = state
	target.Children = nil
	target.ExecutorConfig = execCfg
	target.Suspended = nil
	return ApplyResult{YieldReason: charter.YieldToolUse}, nil
}

func applySpawn(parent *instance.Instance, outcome *charter.SpawnOutcome) (ApplyResult, error) {
	if outcome == nil || len(outcome.Children) == 0 {
		return ApplyResult{}, &MisuseError{Reason: "spawn requires at least one child"}
	}
	for _, spec := range outcome.Children {
		if spec.Node == nil {
			return ApplyResult{}, &MisuseError{Reason: "spawn child requires a node"}
		}
		state := spec.State
		if state == nil {
			state = cloneMap(spec.Node.InitialState)
		}
		execCfg := spec.ExecutorConfig
		if execCfg == nil {
			execCfg = spec.Node.ExecutorConfig
		}
		child := instance.CreateInstance(spec.Node, state, execCfg)
		parent.Children = append(parent.Children, child)
	}
	return ApplyResult{YieldReason: charter.YieldToolUse}, nil
}

func applySuspend(target *instance.Instance, outcome *charter.SuspendOutcome) (ApplyResult, error) {
	if outcome == nil || outcome.SuspendID == "" {
		return ApplyResult{}, &MisuseError{Reason: "suspend requires a suspend id"}
	}
	info := &instance.SuspendInfo{
		SuspendID:   outcome.SuspendID,
		Reason:      outcome.Reason,
		SuspendedAt: time.Now(),
		Metadata:    outcome.Metadata,
		ToolUseID:   outcome.ToolUseID,
	}
	target.Suspended = info
	return ApplyResult{YieldReason: charter.YieldSuspend, SuspendInfo: info}, nil
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
