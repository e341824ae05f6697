package charter

import "fmt"

// ConfigError reports a structural problem detected while constructing a
// Charter or Node: a name collision within a single resolution scope, a
// dangling reference, or a missing executor. Per spec §7, configuration
// errors are bugs, not runtime conditions — they surface at construction
// time rather than during a run.
type ConfigError struct {
	// Component names the charter construct at fault (e.g. "node:billing").
	Component string
	// Reason describes the problem.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("charter config error in %s: %s", e.Component, e.Reason)
}

func newConfigError(component, format string, args ...any) *ConfigError {
	return &ConfigError{Component: component, Reason: fmt.Sprintf(format, args...)}
}
