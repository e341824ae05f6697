package machine

import (
	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/instance"
)

// cedeOutcome pairs a ceding leaf (primary or worker) with the content it
// ceded, so the loop can excise it from its parent regardless of which kind
// of leaf produced it.
type cedeOutcome struct {
	leaf    instance.Leaf
	content any
}

// foldResult is the outcome of folding one step's primary and worker leaf
// outcomes together (§4.7 step 2d, §5 "primary first, then workers in leaf-
// index order").
type foldResult struct {
	yieldReason charter.YieldReason
	done        bool
	cedeContent any
	cedeLeaves  []cedeOutcome
	suspendInfo *instance.SuspendInfo
}

// foldOutcomes implements the fold rule: cede or suspend from the primary
// dominates regardless of worker state; a worker's end_turn is ignored; the
// turn is done only once every leaf has ended normally (no leaf still has
// pending tool use). Every leaf that yielded cede this step — primary or
// worker — is collected in cedeLeaves so the caller excises each one from
// its parent; §4.4 leaves excision entirely to the loop, and §8 invariant 3
// requires cede to remove exactly the ceding instance, not just the
// primary's.
func foldOutcomes(primary *leafOutcome, workers []leafOutcome) foldResult {
	var cedes []cedeOutcome
	if primary != nil && primary.yieldReason == charter.YieldCede {
		cedes = append(cedes, cedeOutcome{leaf: primary.leaf, content: primary.cedeContent})
	}
	for _, w := range workers {
		if w.yieldReason == charter.YieldCede {
			cedes = append(cedes, cedeOutcome{leaf: w.leaf, content: w.cedeContent})
		}
	}

	allNormal := len(cedes) == 0
	if primary != nil && primary.yieldReason == charter.YieldToolUse {
		allNormal = false
	}
	for _, w := range workers {
		if w.yieldReason == charter.YieldToolUse {
			allNormal = false
		}
	}

	if primary != nil {
		switch primary.yieldReason {
		case charter.YieldCede:
			leaf := primary.leaf
			return foldResult{
				yieldReason: charter.YieldCede,
				done:        len(leaf.Ancestors) == 0,
				cedeContent: primary.cedeContent,
				cedeLeaves:  cedes,
			}
		case charter.YieldSuspend:
			return foldResult{
				yieldReason: charter.YieldSuspend,
				done:        false,
				suspendInfo: primary.suspendInfo,
				cedeLeaves:  cedes,
			}
		case charter.YieldMaxTokens:
			return foldResult{yieldReason: charter.YieldMaxTokens, done: true, cedeLeaves: cedes}
		}
	}

	if len(cedes) > 0 {
		// One or more workers ceded with no dominating primary outcome: the
		// tree changed, so their parent needs another step to pick it up.
		return foldResult{yieldReason: charter.YieldToolUse, done: false, cedeLeaves: cedes}
	}

	if allNormal {
		return foldResult{yieldReason: charter.YieldEndTurn, done: true}
	}
	return foldResult{yieldReason: charter.YieldToolUse, done: false}
}
