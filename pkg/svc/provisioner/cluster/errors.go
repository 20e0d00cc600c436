package cluster

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Node lifecycle errors.
var (
	// ErrNodeAlreadyCreated indicates a Create call on a node that already
	// has a container.
	ErrNodeAlreadyCreated = errors.New("node already has a container")
	// ErrNodeNotCreated indicates an operation that requires a container on a
	// node that has none.
	ErrNodeNotCreated = errors.New("node has no container")
	// ErrNodeNotRunning indicates an exec or transfer against a stopped node.
	ErrNodeNotRunning = errors.New("node is not running")
	// ErrNodeNotStopped indicates a Remove call on a running node.
	ErrNodeNotStopped = errors.New("node must be stopped before removal")
	// ErrExecFailed wraps runtime-level command execution failures. A
	// non-zero exit code is not an execution failure.
	ErrExecFailed = errors.New("command execution failed")
	// ErrFileTransfer wraps put/get file failures.
	ErrFileTransfer = errors.New("file transfer failed")
)

// Cluster lifecycle errors.
var (
	// ErrDuplicateHostname indicates a container with one of the cluster's
	// hostnames is already attached to the cluster network.
	ErrDuplicateHostname = errors.New("hostname already present on network")
	// ErrClusterAlreadyStarted indicates a Start call on a running cluster.
	ErrClusterAlreadyStarted = errors.New("cluster is already started")
	// ErrClusterNotFound indicates no containers carry the cluster's label.
	ErrClusterNotFound = errors.New("no containers found for cluster")
	// ErrNodeNotFound indicates a lookup for a node the cluster does not have.
	ErrNodeNotFound = errors.New("node not found")
)

// NodeError pairs a node name with the failure it hit during a fan-out
// operation.
type NodeError struct {
	Node string
	Err  error
}

func (e NodeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Node, e.Err)
}

func (e NodeError) Unwrap() error {
	return e.Err
}

// AggregateError reports every node that failed during a group or cluster
// fan-out. It is returned only after all members have been attempted.
type AggregateError struct {
	// Op is the fan-out operation that failed, for example "start".
	Op string
	// Nodes lists the failures, sorted by node name.
	Nodes []NodeError
}

func (e *AggregateError) Error() string {
	names := make([]string, 0, len(e.Nodes))
	details := make([]string, 0, len(e.Nodes))

	for _, nodeErr := range e.Nodes {
		names = append(names, nodeErr.Node)
		details = append(details, nodeErr.Error())
	}

	return fmt.Sprintf(
		"%s failed on %d node(s) [%s]: %s",
		e.Op, len(e.Nodes), strings.Join(names, ", "), strings.Join(details, "; "),
	)
}

// Unwrap exposes the per-node errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Nodes))
	for _, nodeErr := range e.Nodes {
		errs = append(errs, nodeErr)
	}

	return errs
}

// newAggregate builds an AggregateError from the collected node failures, or
// nil when there are none. Failures are sorted by node name so the message is
// deterministic regardless of completion order.
func newAggregate(op string, nodeErrs []NodeError) error {
	if len(nodeErrs) == 0 {
		return nil
	}

	sort.Slice(nodeErrs, func(i, j int) bool {
		return nodeErrs[i].Node < nodeErrs[j].Node
	})

	return &AggregateError{Op: op, Nodes: nodeErrs}
}
