package instance_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
)

// leafCount is the number of leaf instances built by buildMixedDepthTree:
// three direct children of root, three more one level further down, so the
// tree exercises both flat and nested shapes in the same property run.
const leafCount = 6

// buildMixedDepthTree constructs a tree with leafCount leaves — half
// directly under root, half nested one level under an intermediate child —
// and marks leaf i suspended iff suspended[i]. It returns the root and the
// leaf instances in the same order as suspended.
func buildMixedDepthTree(suspended []bool) (*instance.Instance, []*instance.Instance) {
	node := charter.NewNode("n")
	root := instance.CreateInstance(node, nil, nil)
	leaves := make([]*instance.Instance, 0, leafCount)

	for i := 0; i < 3; i++ {
		leaf := instance.CreateInstance(node, nil, nil)
		root.Children = append(root.Children, leaf)
		leaves = append(leaves, leaf)
	}
	for i := 0; i < 3; i++ {
		mid := instance.CreateInstance(node, nil, nil)
		leaf := instance.CreateInstance(node, nil, nil)
		mid.Children = append(mid.Children, leaf)
		root.Children = append(root.Children, mid)
		leaves = append(leaves, leaf)
	}

	for i, leaf := range leaves {
		if suspended[i] {
			leaf.Suspended = &instance.SuspendInfo{SuspendID: "s"}
		}
	}
	return root, leaves
}

func genSuspendMask() gopter.Gen {
	return gen.SliceOfN(leafCount, gen.Bool())
}

// TestActiveLeavesExcludesExactlySuspendedProperty verifies §3 invariant 5
// and §8 invariant 1 for arbitrary suspension patterns across a mixed-depth
// tree: ActiveLeaves returns exactly the non-suspended leaves, each still
// carrying a nil Suspended, regardless of where in the tree they sit.
func TestActiveLeavesExcludesExactlySuspendedProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("active leaves are exactly the non-suspended leaves", prop.ForAll(
		func(mask []bool) bool {
			root, leaves := buildMixedDepthTree(mask)

			active, err := instance.ActiveLeaves(root)
			if err != nil {
				return false
			}

			wantIDs := map[string]bool{}
			for i, leaf := range leaves {
				if !mask[i] {
					wantIDs[leaf.ID] = true
				}
			}
			if len(active) != len(wantIDs) {
				return false
			}
			for _, l := range active {
				if !wantIDs[l.Instance.ID] {
					return false
				}
				if l.Instance.Suspended != nil {
					return false
				}
			}
			return true
		},
		genSuspendMask(),
	))

	properties.TestingRun(t)
}

// TestCreateInstanceIDsAreUniqueProperty verifies §3 invariant 1/§8
// invariant 2: minting any number of instances via CreateInstance never
// produces a colliding id, so a tree built from them never trips
// ActiveLeaves' revisited-id DepthError.
func TestCreateInstanceIDsAreUniqueProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("freshly created instances never share an id", prop.ForAll(
		func(n int) bool {
			node := charter.NewNode("n")
			seen := map[string]bool{}
			for i := 0; i < n; i++ {
				inst := instance.CreateInstance(node, nil, nil)
				if seen[inst.ID] {
					return false
				}
				seen[inst.ID] = true
			}
			return true
		},
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
