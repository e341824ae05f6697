package charter

// TransitionKind discriminates the four transition variants from §3.
type TransitionKind string

const (
	// TransitionKindCode executes Go logic that returns a TransitionResult.
	TransitionKindCode TransitionKind = "code"
	// TransitionKindGeneral accepts an inline node definition supplied by the
	// agent at call time (the tool input itself carries the node shape).
	TransitionKindGeneral TransitionKind = "general"
	// TransitionKindSerial transitions to a fixed node, identified either by
	// a charter node id (TargetNodeID) or an inline SerialNode.
	TransitionKindSerial TransitionKind = "serial"
	// TransitionKindRef resolves through the charter's Transitions registry.
	TransitionKindRef TransitionKind = "ref"
)

// Transition is a node-scoped declaration of how the instance may progress.
// Resolution only ever walks the current node's transitions (no ancestor
// walk, per §4.1).
type Transition struct {
	// Name is how the transition is addressed by the transition/transition_*
	// built-in tools (§4.3).
	Name string
	// Description is surfaced to the inference backend's transition list.
	Description string
	// Kind selects which of the four variants this declaration is.
	Kind TransitionKind

	// ArgumentsSchema validates the arguments payload for code/general
	// transitions. Nil means no arguments are expected.
	ArgumentsSchema *Schema

	// Execute runs the code transition's logic. Only meaningful when Kind ==
	// TransitionKindCode.
	Execute CodeTransitionFunc

	// TargetNodeID names a node registered in the owning Charter. Used by
	// TransitionKindSerial (and by TransitionKindRef once resolved).
	TargetNodeID string

	// TargetNode carries an inline node definition not registered in the
	// charter. Used by TransitionKindSerial when the target isn't a
	// registered node.
	TargetNode *Node

	// Ref names an entry in the charter's Transitions registry. Only
	// meaningful when Kind == TransitionKindRef.
	Ref string
}

// TransitionResultKind discriminates the outcome a transition (or a tool
// producing a suspend) applies to the tree.
type TransitionResultKind string

const (
	// TransitionResultTo replaces the current instance with a new node.
	TransitionResultTo TransitionResultKind = "transition-to"
	// TransitionResultSpawn appends children to the current instance.
	TransitionResultSpawn TransitionResultKind = "spawn"
	// TransitionResultCede removes the current instance, returning control
	// to its parent.
	TransitionResultCede TransitionResultKind = "cede"
	// TransitionResultSuspend pauses the current instance pending resume.
	TransitionResultSuspend TransitionResultKind = "suspend"
)

type (
	// ExecutorConfig carries a per-node or per-transition executor override
	// (e.g. a different model class or provider). Fields are interpreted by
	// the executor package; charter treats this as opaque configuration.
	ExecutorConfig struct {
		Options map[string]any
	}

	// TransitionToOutcome replaces the current instance with a new node.
	TransitionToOutcome struct {
		// Node is the target node. Required.
		Node *Node
		// State seeds the new instance's state. If nil, Node.InitialState is
		// used; if both are nil, applying the outcome raises a transition
		// misuse error (§7).
		State map[string]any
		// ExecutorConfig overrides the default executor for the new instance.
		ExecutorConfig *ExecutorConfig
	}

	// ChildSpec describes one child instance to append during a spawn.
	ChildSpec struct {
		Node           *Node
		State          map[string]any
		ExecutorConfig *ExecutorConfig
	}

	// SpawnOutcome appends one or more children to the current instance.
	SpawnOutcome struct {
		Children []ChildSpec
	}

	// CedeOutcome removes the current instance, returning optional content
	// to its parent.
	CedeOutcome struct {
		// Content is a string or a []Message.
		Content any
	}

	// SuspendOutcome marks the current instance paused pending resume.
	SuspendOutcome struct {
		SuspendID string
		Reason    string
		Metadata  map[string]any
		// ToolUseID is the id of the ToolUseBlock whose execution produced
		// this suspension, set only when the suspension originated from a
		// tool's suspend marker (never from a command or a transition's own
		// Execute). Resume synthesizes a tool_result against this id only
		// when it's present (§4.7 Resume path).
		ToolUseID string
	}

	// TransitionResult is the tagged union a code Transition.Execute (or a
	// tool's suspend marker, translated by the tool pipeline) produces.
	// Exactly one of the outcome fields is set, selected by Kind.
	TransitionResult struct {
		Kind         TransitionResultKind
		TransitionTo *TransitionToOutcome
		Spawn        *SpawnOutcome
		Cede         *CedeOutcome
		Suspend      *SuspendOutcome
	}
)

// TransitionTo builds a transition-to TransitionResult.
func TransitionTo(node *Node, state map[string]any, cfg *ExecutorConfig) TransitionResult {
	return TransitionResult{
		Kind:         TransitionResultTo,
		TransitionTo: &TransitionToOutcome{Node: node, State: state, ExecutorConfig: cfg},
	}
}

// SpawnChildren builds a spawn TransitionResult.
func SpawnChildren(children ...ChildSpec) TransitionResult {
	return TransitionResult{Kind: TransitionResultSpawn, Spawn: &SpawnOutcome{Children: children}}
}

// Cede builds a cede TransitionResult.
func Cede(content any) TransitionResult {
	return TransitionResult{Kind: TransitionResultCede, Cede: &CedeOutcome{Content: content}}
}

// Suspend builds a suspend TransitionResult.
func Suspend(suspendID, reason string, metadata map[string]any) TransitionResult {
	return TransitionResult{
		Kind:    TransitionResultSuspend,
		Suspend: &SuspendOutcome{SuspendID: suspendID, Reason: reason, Metadata: metadata},
	}
}

// CommandResultKind discriminates the six outcomes a Command may produce:
// the four transition outcomes plus value and resume (§4.5).
type CommandResultKind string

const (
	CommandResultTransitionTo CommandResultKind = "transition-to"
	CommandResultSpawn        CommandResultKind = "spawn"
	CommandResultCede         CommandResultKind = "cede"
	CommandResultSuspend      CommandResultKind = "suspend"
	// CommandResultValue updates state (optionally) and returns a value
	// without altering tree shape.
	CommandResultValue CommandResultKind = "value"
	// CommandResultResume clears Suspended from the target instance.
	CommandResultResume CommandResultKind = "resume"
)

type (
	// ValueOutcome updates state and/or returns a plain value without
	// altering tree shape.
	ValueOutcome struct {
		Value any
		State map[string]any
	}

	// ResumeOutcome clears the suspension from the target instance. Payload
	// is injected into history as a synthetic tool-result when the
	// suspension originated from a tool (§4.7 resume path).
	ResumeOutcome struct {
		Payload any
		IsError bool
	}

	// CommandResult is the tagged union a Command.Execute produces.
	CommandResult struct {
		Kind         CommandResultKind
		TransitionTo *TransitionToOutcome
		Spawn        *SpawnOutcome
		Cede         *CedeOutcome
		Suspend      *SuspendOutcome
		Value        *ValueOutcome
		Resume       *ResumeOutcome
	}
)

// ValueResult builds a value CommandResult.
func ValueResult(value any, state map[string]any) CommandResult {
	return CommandResult{Kind: CommandResultValue, Value: &ValueOutcome{Value: value, State: state}}
}

// ResumeResult builds a resume CommandResult.
func ResumeResult(payload any, isError bool) CommandResult {
	return CommandResult{Kind: CommandResultResume, Resume: &ResumeOutcome{Payload: payload, IsError: isError}}
}

// AsTransitionResult converts the four shared outcome kinds into a
// TransitionResult for reuse by the transition handler. Returns false for
// CommandResultValue/CommandResultResume, which the command executor applies
// directly instead.
func (r CommandResult) AsTransitionResult() (TransitionResult, bool) {
	switch r.Kind {
	case CommandResultTransitionTo:
		return TransitionResult{Kind: TransitionResultTo, TransitionTo: r.TransitionTo}, true
	case CommandResultSpawn:
		return TransitionResult{Kind: TransitionResultSpawn, Spawn: r.Spawn}, true
	case CommandResultCede:
		return TransitionResult{Kind: TransitionResultCede, Cede: r.Cede}, true
	case CommandResultSuspend:
		return TransitionResult{Kind: TransitionResultSuspend, Suspend: r.Suspend}, true
	default:
		return TransitionResult{}, false
	}
}
