package toolpipeline

import (
	"errors"
	"fmt"

	goa "goa.design/goa/v3/pkg"

	"github.com/chartrun/machine/toolerrors"
)

// RetryHint classifies why a tool failed, letting the inference backend (or
// a human-in-the-loop reviewer) decide whether retrying makes sense. This
// is additive metadata on top of the core error taxonomy (§7): it never
// changes whether a turn aborts, only what the failed tool-result carries.
type RetryHint struct {
	// Retryable is false for e.g. permanently invalid arguments, true for
	// e.g. a transient upstream failure.
	Retryable bool
	// Reason is a short machine-readable classification (e.g.
	// "invalid_arguments", "upstream_unavailable").
	Reason string
}

// retryableError pairs an underlying tool error with a RetryHint. Tools
// construct one with WithRetryHint; the pipeline extracts it via
// errors.As when building a failed tool-result.
type retryableError struct {
	err  error
	hint RetryHint
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// WithRetryHint attaches a RetryHint to err for a tool's Execute function to
// return, so the tool pipeline can surface retry guidance alongside the
// failed tool-result.
func WithRetryHint(err error, hint RetryHint) error {
	return &retryableError{err: err, hint: hint}
}

// retryHintFrom extracts a RetryHint from err: an explicitly attached
// WithRetryHint wins; failing that, a wrapped *goa.ServiceError reporting
// "service_unavailable" is classified as a transient upstream failure the
// same way the teacher's retryHintFromExecutionError does for tools backed
// by a Goa-generated client.
func retryHintFrom(err error) (RetryHint, bool) {
	var re *retryableError
	if errors.As(err, &re) {
		return re.hint, true
	}
	var svcErr *goa.ServiceError
	if errors.As(err, &svcErr) && svcErr.Name == "service_unavailable" {
		return RetryHint{Retryable: true, Reason: "tool_unavailable"}, true
	}
	return RetryHint{}, false
}

// formatToolError renders err (extracting a RetryHint if one was attached)
// into the string carried by a failed tool-result. The message itself is
// normalized through toolerrors so nested causes read consistently whether
// the tool returned a plain error or a toolerrors.ToolError chain.
func formatToolError(err error) string {
	msg := toolerrors.FromError(err).Error()
	if hint, ok := retryHintFrom(err); ok {
		return fmt.Sprintf("%s (retryable=%t, reason=%s)", msg, hint.Retryable, hint.Reason)
	}
	return msg
}
