package charter

import "context"

// AncestorView summarizes one ancestor instance for prompt construction and
// read-only tool resolution: the ancestor's node plus its current state.
type AncestorView struct {
	Node  *Node
	State map[string]any
}

type (
	// ExecutorInput is the self-contained snapshot an Executor.Run call
	// receives: everything needed to build a system prompt, gather tool
	// definitions, and call the inference backend, without the executor
	// depending on the live, mutable instance tree (that dependency lives
	// one layer up, in the package that adapts instance.Instance into this
	// snapshot and applies ExecutorOutput back).
	ExecutorInput struct {
		// InstanceID is the instance this turn runs for.
		InstanceID string
		// Node is the instance's current node.
		Node *Node
		// Ancestors lists ancestor views nearest-first, for name resolution
		// and ancestor-state prompt summaries (§4.1, §4.6).
		Ancestors []AncestorView
		// State is the instance's current, already-validated node state.
		State map[string]any
		// PackStates holds the root's pack states for every pack attached
		// to Node, keyed by pack name. Empty for worker nodes (§3 invariant 4).
		PackStates map[string]map[string]any
		// History is the conversation so far, in emission order.
		History []Message
		// UserInput is the new user input for this turn. Empty for the
		// worker variant and for resume continuations (§4.6).
		UserInput string
		// CurrentStep and MaxSteps let the prompt builder append a
		// step-remaining warning as the budget is approached (§4.6 step 1).
		CurrentStep int
		MaxSteps    int
		// WarnAtStepsRemaining configures how early the warning appears
		// (supplemental feature, see SPEC_FULL.md §C.4). Zero selects the
		// default prompt builder's threshold of 5 remaining steps; a negative
		// value keeps the warning from appearing.
		WarnAtStepsRemaining int
		// Worker is true for parallel worker leaves, which receive empty
		// input and omit pack context from the prompt (§4.6 worker variant).
		Worker bool
		// ExecutorConfig carries the effective per-instance executor
		// override, if any.
		ExecutorConfig *ExecutorConfig
	}

	// ExecutorOutput is what an Executor.Run call produces: the assistant
	// response, every new message to append to history, any state/pack
	// state changes applied by the tool pipeline, the yield reason, and an
	// already-resolved transition outcome (if one was queued this turn).
	ExecutorOutput struct {
		// ResponseText is the assistant's textual reply, if any.
		ResponseText string
		// Messages are appended to history in emission order: state/pack
		// updates, tool-result blocks, tool-reply outputs, then the
		// transition instance-message (§5 ordering guarantees).
		Messages []Message
		// NewState is the instance's state after tool execution. Nil means
		// state did not change this turn.
		NewState map[string]any
		// NewPackStates holds pack states that changed this turn, keyed by
		// pack name.
		NewPackStates map[string]map[string]any
		// YieldReason explains why this turn stopped.
		YieldReason YieldReason
		// Transition is set when a transition was queued and resolved this
		// turn; the caller applies it to the live tree.
		Transition *TransitionResult
	}

	// SystemPromptBuilder overrides the executor's default prompt
	// construction for a charter (§3 Charter, §4.6 step 1).
	SystemPromptBuilder func(in ExecutorInput) string

	// Executor is the inference driver contract (§4.6, C7). The standard
	// implementation lives in the executor package; charter only declares
	// the contract so Charter can reference it without depending on the
	// mutable instance tree.
	Executor interface {
		Run(ctx context.Context, ch *Charter, in ExecutorInput) (ExecutorOutput, error)
	}
)
