package charter

import "context"

type (
	// ToolContext is the narrow view of the running instance a Tool.Execute
	// function receives. Implementations live in the toolpipeline package,
	// which wraps the concrete instance tree; charter stays free of any
	// dependency on the mutable runtime types.
	ToolContext interface {
		// State returns the current node state (current-node/charter-owned
		// tools) or pack state (pack-owned tools), already validated.
		State() map[string]any

		// UpdateState merges patch into the writable state this context
		// exposes and validates the result against the owning schema.
		// Invoking this from a context owned by an ancestor instance
		// returns an error per §4.2 (ancestor state is read-only).
		UpdateState(patch map[string]any) (map[string]any, error)

		// InstanceID returns the id of the instance the executing tool call
		// belongs to.
		InstanceID() string

		// GetInstanceMessages returns the message history filtered to the
		// messages originating from InstanceID().
		GetInstanceMessages() []Message
	}

	// TransitionContext is the view a code Transition.Execute function
	// receives. It exposes exactly the ToolContext methods; children are
	// requested by returning a spawn TransitionResult, not through this
	// context.
	TransitionContext interface {
		ToolContext
	}

	// CommandContext is the view a Command.Execute function receives. It
	// exposes exactly the ToolContext methods; it has no cede, spawn or
	// suspend methods. A command requests tree surgery only through the
	// Kind of the CommandResult it returns, which the command executor
	// applies synchronously (§4.5).
	CommandContext interface {
		ToolContext
	}

	// ToolExecuteFunc is the signature of a Tool's execution logic.
	ToolExecuteFunc func(ctx context.Context, input map[string]any, tctx ToolContext) (ToolResult, error)

	// CodeTransitionFunc is the signature of a code Transition's execution logic.
	CodeTransitionFunc func(ctx context.Context, state map[string]any, tctx TransitionContext, args map[string]any) (TransitionResult, error)

	// CommandExecuteFunc is the signature of a Command's execution logic.
	CommandExecuteFunc func(ctx context.Context, input map[string]any, cctx CommandContext) (CommandResult, error)
)
