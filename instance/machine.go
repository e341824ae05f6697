package instance

import (
	"fmt"
	"sync"

	"github.com/chartrun/machine/charter"
)

// Machine is `{ charter, instance (root), history, queue }` (§3 Machine):
// the charter it runs against, the live root instance, the cumulative
// message history, and a mutable append-only queue that executors and
// tools stream messages into during a step without round-tripping through
// return values. mu serializes pack-state and queue access so concurrent
// worker leaves can share them within a step (§5 "pipeline's serial
// per-pack patching").
type Machine struct {
	Charter *charter.Charter
	Root    *Instance
	History []charter.Message

	mu    sync.Mutex
	queue []charter.Message
}

// MachineConfig is the input to CreateMachine (§6 createMachine).
type MachineConfig struct {
	Instance *Instance
	History  []charter.Message
}

// CreateMachine implements `createMachine(charter, { instance, history? })`:
// validates every instance's state against its node's schema, initializes
// packStates lazily, and returns a ready machine.
func CreateMachine(ch *charter.Charter, config MachineConfig) (*Machine, error) {
	if config.Instance == nil {
		return nil, fmt.Errorf("instance: createMachine requires a root instance")
	}
	if err := validateTree(config.Instance); err != nil {
		return nil, err
	}
	if config.Instance.PackStates == nil {
		config.Instance.PackStates = map[string]map[string]any{}
	}
	return &Machine{
		Charter: ch,
		Root:    config.Instance,
		History: append([]charter.Message{}, config.History...),
	}, nil
}

// validateTree validates every instance's state against its node's schema,
// depth-first (§8 invariant 1).
func validateTree(inst *Instance) error {
	if inst.Node.StateSchema != nil {
		if err := inst.Node.StateSchema.Validate(inst.State); err != nil {
			return fmt.Errorf("instance %s: state invalid: %w", inst.ID, err)
		}
	}
	for _, child := range inst.Children {
		if err := validateTree(child); err != nil {
			return err
		}
	}
	return nil
}

// Enqueue appends messages to the machine's pending queue. Executors and
// tool contexts call this to stream messages into the current step without
// threading them through return values (§3 Machine).
func (m *Machine) Enqueue(messages ...charter.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, messages...)
}

// DrainQueue removes and returns every message queued so far, in order.
func (m *Machine) DrainQueue() []charter.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	drained := m.queue
	m.queue = nil
	return drained
}

// PackState returns the current state for the named pack, lazily seeding
// it from the pack's initial state on first access (§3 Pack state
// lifecycle).
func (m *Machine) PackState(packName string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.packStateLocked(packName)
}

func (m *Machine) packStateLocked(packName string) map[string]any {
	if m.Root.PackStates == nil {
		m.Root.PackStates = map[string]map[string]any{}
	}
	if st, ok := m.Root.PackStates[packName]; ok {
		return st
	}
	pack := m.Charter.Packs[packName]
	var seed map[string]any
	if pack != nil {
		seed = cloneMap(pack.InitialState)
	} else {
		seed = map[string]any{}
	}
	m.Root.PackStates[packName] = seed
	return seed
}

// SetPackState overwrites the named pack's root-resident state (§8
// invariant 4: pack state mutations via any pack tool reach the root).
func (m *Machine) SetPackState(packName string, state map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Root.PackStates == nil {
		m.Root.PackStates = map[string]map[string]any{}
	}
	m.Root.PackStates[packName] = state
}

// InstanceMessages filters History to messages whose Source.InstanceID
// equals instanceID, implementing ToolContext.GetInstanceMessages (§3 Tool).
func (m *Machine) InstanceMessages(instanceID string) []charter.Message {
	var out []charter.Message
	for _, msg := range m.History {
		if msg.Source.InstanceID == instanceID {
			out = append(out, msg)
		}
	}
	return out
}
