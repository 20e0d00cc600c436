package cluster

// Result is the outcome of a command executed on a node. ExitCode is nil for
// detached executions, whose completion is never awaited.
type Result struct {
	// ExitCode is the command's exit code, or nil while unknown.
	ExitCode *int
	// Output is the combined stdout and stderr of the command. Empty for
	// detached executions.
	Output string
}

// Pending reports whether the exit status is unknown (detached execution).
func (r Result) Pending() bool {
	return r.ExitCode == nil
}

// Succeeded reports whether the command completed with exit code zero.
func (r Result) Succeeded() bool {
	return r.ExitCode != nil && *r.ExitCode == 0
}
