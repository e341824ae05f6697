package instance

import "github.com/chartrun/machine/charter"

// Step is one emission of the machine loop: one inference call's worth of
// progress, or one synchronous command invocation's worth (§3 Step).
type Step struct {
	// Instance is the leaf instance this step ran for (the primary leaf for
	// inference steps; the target instance for command steps).
	Instance *Instance
	// Messages lists every message emitted during this step, in order.
	Messages []charter.Message
	// YieldReason explains why the step stopped.
	YieldReason charter.YieldReason
	// Response is the assistant's textual reply for this step, if any.
	Response string
	// Done is true once the turn has nothing further to do: every active
	// leaf ended normally with none still mid tool-use, the primary leaf at
	// the root ceded, the primary yielded max_tokens, or the step budget was
	// exhausted.
	Done bool
	// CedeContent carries the content returned by a cede outcome, present
	// only when YieldReason == charter.YieldCede.
	CedeContent any
	// SuspendInfo carries the suspension attached this step, present only
	// when YieldReason == charter.YieldSuspend.
	SuspendInfo *SuspendInfo
}
