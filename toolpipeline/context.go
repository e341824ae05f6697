package toolpipeline

import (
	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
	"github.com/chartrun/machine/state"
)

// nodeContext is a writable ToolContext backed by a live instance's own
// node state: used for tools owned by the current node or by the charter
// (§4.3 "current-node or charter → writable node state").
type nodeContext struct {
	machine *instance.Machine
	inst    *instance.Instance
	changed bool
}

func (c *nodeContext) State() map[string]any { return c.inst.State }

func (c *nodeContext) UpdateState(patch map[string]any) (map[string]any, error) {
	res := state.UpdateState(c.inst.State, patch, c.inst.Node.StateSchema)
	if !res.Success {
		return c.inst.State, &ValidationError{Reason: res.Error}
	}
	c.inst.State = res.State
	c.changed = true
	return c.inst.State, nil
}

func (c *nodeContext) InstanceID() string { return c.inst.ID }

func (c *nodeContext) GetInstanceMessages() []charter.Message {
	return c.machine.InstanceMessages(c.inst.ID)
}

// ancestorContext is a read-only ToolContext backed by an ancestor
// instance's node state (§4.2 "Mutations to ancestor state... are not
// supported").
type ancestorContext struct {
	machine *instance.Machine
	inst    *instance.Instance
}

func (c *ancestorContext) State() map[string]any { return c.inst.State }

func (c *ancestorContext) UpdateState(map[string]any) (map[string]any, error) {
	return nil, &state.AncestorWriteError{InstanceID: c.inst.ID}
}

func (c *ancestorContext) InstanceID() string { return c.inst.ID }

func (c *ancestorContext) GetInstanceMessages() []charter.Message {
	return c.machine.InstanceMessages(c.inst.ID)
}

// packContext is a writable ToolContext backed by a pack's root-resident
// state, validated against the pack's own schema (§4.3 "pack → writable
// pack state").
type packContext struct {
	machine     *instance.Machine
	pack        *charter.Pack
	forInstance string
	changed     bool
}

func (c *packContext) State() map[string]any {
	return c.machine.PackState(c.pack.Name)
}

func (c *packContext) UpdateState(patch map[string]any) (map[string]any, error) {
	res := state.UpdateState(c.machine.PackState(c.pack.Name), patch, c.pack.StateSchema)
	if !res.Success {
		return c.machine.PackState(c.pack.Name), &ValidationError{Reason: res.Error}
	}
	c.machine.SetPackState(c.pack.Name, res.State)
	c.changed = true
	return res.State, nil
}

func (c *packContext) InstanceID() string { return c.forInstance }

func (c *packContext) GetInstanceMessages() []charter.Message {
	return c.machine.InstanceMessages(c.forInstance)
}

// ValidationError wraps a failed schema validation raised through
// UpdateState (§4.2, §7 Validation error).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "state validation failed: " + e.Reason }
