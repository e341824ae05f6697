// Package machine drives a Machine through a turn: the async step loop that
// collects active leaves, runs the primary and any worker leaves, folds
// their yields, applies tree surgery, and streams out Steps until the turn
// is done, suspended, or exhausts its step budget (§4.7).
package machine

import (
	"context"
	"fmt"
	"sync"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
	"github.com/chartrun/machine/telemetry"
)

// Run implements `runMachine(machine, input, options) → async sequence of
// Step` (§4.7, §6): a goroutine feeds steps onto the returned channel, which
// is closed once the turn is done, suspended, or errors. The caller may stop
// consuming at any point; no rollback occurs for steps already sent (§5
// Cancellation).
func Run(ctx context.Context, m *instance.Machine, in Input, opts Options, log telemetry.Logger) <-chan instance.Step {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	out := make(chan instance.Step)
	go func() {
		defer close(out)
		runLoop(ctx, m, in, opts, log, out)
	}()
	return out
}

func runLoop(ctx context.Context, m *instance.Machine, in Input, opts Options, log telemetry.Logger, out chan<- instance.Step) {
	userInput, err := seedTurn(m, in)
	if err != nil {
		log.Error(ctx, "machine: failed to seed turn", "error", err.Error())
		return
	}

	maxSteps := opts.maxSteps()
	for step := 0; step < maxSteps; step++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		leaves, err := instance.ActiveLeaves(m.Root)
		if err != nil {
			log.Error(ctx, "machine: active leaf traversal failed", "error", err.Error())
			return
		}
		if len(leaves) == 0 {
			return
		}

		primaryLeaf, workerLeaves := classify(leaves)

		var primaryOutcome *leafOutcome
		var workerOutcomes []leafOutcome

		var wg sync.WaitGroup
		if primaryLeaf != nil {
			o := runLeaf(ctx, m, *primaryLeaf, false, userInput, step, opts)
			primaryOutcome = &o
		}
		userInput = "" // only the first step of the turn carries fresh user input

		if len(workerLeaves) > 0 {
			workerOutcomes = make([]leafOutcome, len(workerLeaves))
			for i, wl := range workerLeaves {
				wg.Add(1)
				go func(i int, leaf instance.Leaf) {
					defer wg.Done()
					workerOutcomes[i] = runLeaf(ctx, m, leaf, true, "", step, opts)
				}(i, wl)
			}
			wg.Wait()
		}

		if primaryOutcome != nil && primaryOutcome.err != nil {
			log.Error(ctx, "machine: primary leaf failed", "instance", primaryOutcome.leaf.Instance.ID, "error", primaryOutcome.err.Error())
			return
		}
		for _, o := range workerOutcomes {
			if o.err != nil {
				log.Warn(ctx, "machine: worker leaf failed", "instance", o.leaf.Instance.ID, "error", o.err.Error())
			}
		}

		messages := m.DrainQueue()
		m.History = append(m.History, messages...)

		folded := foldOutcomes(primaryOutcome, workerOutcomes)

		st := instance.Step{
			Messages:    messages,
			YieldReason: folded.yieldReason,
			Done:        folded.done,
		}
		if primaryOutcome != nil {
			st.Instance = primaryOutcome.leaf.Instance
			st.Response = primaryOutcome.response
		}
		if folded.yieldReason == charter.YieldCede {
			st.CedeContent = folded.cedeContent
		}
		for _, c := range folded.cedeLeaves {
			if len(c.leaf.Ancestors) == 0 {
				continue
			}
			parent := c.leaf.Ancestors[0]
			if instance.RemoveChild(parent, c.leaf.Instance.ID) {
				m.History = append(m.History, charter.Message{
					Role:   charter.RoleUser,
					Blocks: []charter.Block{charter.OutputBlock{Kind: "cede", Payload: c.content}},
					Source: charter.MessageSource{InstanceID: parent.ID, External: true},
				})
			}
		}
		if folded.suspendInfo != nil {
			st.SuspendInfo = folded.suspendInfo
		}

		select {
		case out <- st:
		case <-ctx.Done():
			return
		}

		if folded.yieldReason == charter.YieldSuspend {
			return
		}
		if folded.done {
			return
		}
	}

	final := instance.Step{YieldReason: charter.YieldMaxTokens, Done: true}
	select {
	case out <- final:
	case <-ctx.Done():
	}
}

// classify splits active leaves into the sole primary (non-worker) leaf, if
// any, and the worker leaves (§4.7 step 2a).
func classify(leaves []instance.Leaf) (*instance.Leaf, []instance.Leaf) {
	var primary *instance.Leaf
	var workers []instance.Leaf
	for i := range leaves {
		if leaves[i].Instance.IsWorker() {
			workers = append(workers, leaves[i])
			continue
		}
		if primary == nil {
			l := leaves[i]
			primary = &l
		}
	}
	return primary, workers
}

// seedTurn appends the turn's opening message(s) to history and queue, or
// resolves a resume (§4.7 step 1 and "Resume path").
func seedTurn(m *instance.Machine, in Input) (string, error) {
	switch in.Kind {
	case InputUser:
		msg := charter.NewTextMessage(charter.RoleUser, in.Text)
		m.History = append(m.History, msg)
		return in.Text, nil

	case InputCommand:
		m.History = append(m.History, in.Messages...)
		return "", nil

	case InputResume:
		target, _, ok := instance.FindSuspended(m.Root, in.SuspendID)
		if !ok {
			return "", fmt.Errorf("machine: no instance suspended with id %q", in.SuspendID)
		}
		toolUseID := target.Suspended.ToolUseID
		target.Suspended = nil
		// Only a tool-originated suspension left an outstanding tool_use
		// block awaiting a result; command- and transition-originated
		// suspensions inject nothing synthetic here (§4.7 Resume path).
		if toolUseID != "" {
			resumeMsg := charter.Message{
				Role: charter.RoleUser,
				Blocks: []charter.Block{charter.ToolResultBlock{
					ToolUseID: toolUseID,
					Content:   in.Payload,
					IsError:   in.IsError,
				}},
				Source: charter.MessageSource{InstanceID: target.ID, External: true},
			}
			m.History = append(m.History, resumeMsg)
		}
		return "", nil

	default:
		return "", fmt.Errorf("machine: unknown input kind %q", in.Kind)
	}
}
