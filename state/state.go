// Package state implements the validated patch-merge discipline shared by
// node state and pack state updates (§4.2). The merge itself is a shallow
// map copy done with plain range loops over current and patch; no example
// in the corpus reaches for a JSON-patch library for a
// merge this shallow, so this stays on the standard library by design.
package state

import "github.com/chartrun/machine/charter"

// Result is the outcome of an UpdateState call.
type Result struct {
	Success bool
	State   map[string]any
	Error   string
}

// UpdateState performs a shallow merge of patch into current, validates the
// result against schema, and returns the merged state on success or the
// original, unchanged state on failure (§4.2).
func UpdateState(current map[string]any, patch map[string]any, schema *charter.Schema) Result {
	merged := make(map[string]any, len(current)+len(patch))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	if schema != nil {
		if err := schema.Validate(merged); err != nil {
			return Result{Success: false, State: current, Error: err.Error()}
		}
	}
	return Result{Success: true, State: merged}
}

// AncestorWriteError is returned when a tool owned by an ancestor instance
// attempts to call UpdateState: ancestor state is read-only from a
// descendant's tool context (§4.2).
type AncestorWriteError struct {
	InstanceID string
}

func (e *AncestorWriteError) Error() string {
	return "cannot update state owned by ancestor instance " + e.InstanceID + ": ancestor state is read-only"
}
