package instance

import "fmt"

// DepthError reports a tree traversal that exceeded MaxTreeDepth or
// revisited an instance id — a programming bug, never a runtime condition
// (§7 Cycle/depth error).
type DepthError struct {
	InstanceID string
	Reason     string
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("instance tree error at %s: %s", e.InstanceID, e.Reason)
}

// Leaf pairs a leaf instance with its ancestor chain, nearest-first, as
// gathered by a tree walk.
type Leaf struct {
	Instance  *Instance
	Ancestors []*Instance
}

// ActiveLeaves walks the tree depth-first from root and returns every
// non-suspended leaf along with its ancestor chain. Suspended instances are
// excluded regardless of whether they have children (§3 invariant 5,
// glossary "Active leaf").
func ActiveLeaves(root *Instance) ([]Leaf, error) {
	var leaves []Leaf
	seen := map[string]bool{}
	var walk func(inst *Instance, ancestors []*Instance, depth int) error
	walk = func(inst *Instance, ancestors []*Instance, depth int) error {
		if depth > MaxTreeDepth {
			return &DepthError{InstanceID: inst.ID, Reason: "exceeds maximum tree depth"}
		}
		if seen[inst.ID] {
			return &DepthError{InstanceID: inst.ID, Reason: "id revisited during traversal"}
		}
		seen[inst.ID] = true

		if inst.Suspended != nil {
			return nil
		}
		if inst.IsLeaf() {
			leaves = append(leaves, Leaf{Instance: inst, Ancestors: ancestors})
			return nil
		}
		childAncestors := append([]*Instance{inst}, ancestors...)
		for _, child := range inst.Children {
			if err := walk(child, childAncestors, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, nil, 0); err != nil {
		return nil, err
	}
	return leaves, nil
}

// FindSuspended searches the tree for an instance whose Suspended.SuspendID
// matches id, returning the instance and its ancestor chain nearest-first.
func FindSuspended(root *Instance, suspendID string) (*Instance, []*Instance, bool) {
	var found *Instance
	var foundAncestors []*Instance
	var walk func(inst *Instance, ancestors []*Instance)
	walk = func(inst *Instance, ancestors []*Instance) {
		if found != nil {
			return
		}
		if inst.Suspended != nil && inst.Suspended.SuspendID == suspendID {
			found = inst
			foundAncestors = ancestors
			return
		}
		childAncestors := append([]*Instance{inst}, ancestors...)
		for _, child := range inst.Children {
			walk(child, childAncestors)
		}
	}
	walk(root, nil)
	return found, foundAncestors, found != nil
}

// FindByID searches the tree for an instance with the given id, returning
// it along with its ancestor chain nearest-first (nil for root) and whether
// it was found.
func FindByID(root *Instance, id string) (*Instance, []*Instance, bool) {
	if root.ID == id {
		return root, nil, true
	}
	var found *Instance
	var foundAncestors []*Instance
	var walk func(inst *Instance, ancestors []*Instance)
	walk = func(inst *Instance, ancestors []*Instance) {
		if found != nil {
			return
		}
		childAncestors := append([]*Instance{inst}, ancestors...)
		for _, child := range inst.Children {
			if child.ID == id {
				found = child
				foundAncestors = childAncestors
				return
			}
			walk(child, childAncestors)
		}
	}
	walk(root, nil)
	return found, foundAncestors, found != nil
}

// RemoveChild removes the child with the given id from parent.Children,
// preserving the relative order of the remaining children (§8 invariant 3,
// "no phantom siblings").
func RemoveChild(parent *Instance, childID string) bool {
	for i, c := range parent.Children {
		if c.ID == childID {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return true
		}
	}
	return false
}

// ReplaceInstance overwrites target's node/state/children/executor config
// in place, as a transition-to outcome requires (§4.4): the instance id is
// preserved, but everything else about the instance is replaced, including
// clearing its children.
func ReplaceInstance(target *Instance, node *Instance) {
	target.Node = node.Node
	target.State = node.State
	target.Children = nil
	target.ExecutorConfig = node.ExecutorConfig
	target.Suspended = nil
}
