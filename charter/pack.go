package charter

// Pack is a reusable module of tools, commands, and state: singleton per
// root instance (§3). Pack tools receive pack state only, never node state.
type Pack struct {
	// Name uniquely identifies the pack within a Charter.
	Name string
	// Description documents the pack's purpose.
	Description string
	// StateSchema validates the pack's state. Nil means any object is
	// accepted.
	StateSchema *Schema
	// Tools maps tool name to declaration, scoped to this pack (§4.1
	// priority 4, only considered for the current node's attached packs).
	Tools map[string]*Tool
	// Commands maps command name to declaration.
	Commands map[string]*Command
	// InitialState seeds packStates[Name] lazily on first root access
	// (§3 lifecycle).
	InitialState map[string]any
}

// NewPack constructs a Pack with empty maps ready for population.
func NewPack(name string) *Pack {
	return &Pack{Name: name, Tools: map[string]*Tool{}, Commands: map[string]*Command{}}
}
