package cluster

import (
	"context"
	"sync"

	"github.com/flotilla-dev/flotilla/pkg/cli/parallel"
)

// NodeGroup is a named, ordered set of identically configured nodes.
type NodeGroup struct {
	name     string
	nodes    []*Node
	executor *parallel.Executor
}

// NewNodeGroup creates a node group over the given nodes. The executor bounds
// the group's fan-out operations; a nil executor gets the default bound.
func NewNodeGroup(name string, nodes []*Node, executor *parallel.Executor) *NodeGroup {
	if executor == nil {
		executor = parallel.NewExecutor(0)
	}

	return &NodeGroup{name: name, nodes: nodes, executor: executor}
}

// Name returns the group's name.
func (g *NodeGroup) Name() string {
	return g.name
}

// Nodes returns the group's nodes in declaration order.
func (g *NodeGroup) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// Node returns the named node of the group.
func (g *NodeGroup) Node(name string) (*Node, bool) {
	for _, node := range g.nodes {
		if node.Name() == name {
			return node, true
		}
	}

	return nil, false
}

// Execute runs command on every node of the group, keyed by node name.
// Per-node outcomes are independent: one node's runtime failure does not stop
// the others. After every node has been attempted, an AggregateError names
// each failed node; nodes that produced a Result appear in the map even when
// siblings failed.
func (g *NodeGroup) Execute(
	ctx context.Context,
	command string,
	opts ExecOptions,
) (map[string]Result, error) {
	results := make(map[string]Result, len(g.nodes))

	var (
		mu       sync.Mutex
		nodeErrs []NodeError
	)

	tasks := make([]parallel.Task, 0, len(g.nodes))

	for _, node := range g.nodes {
		tasks = append(tasks, func(ctx context.Context) error {
			result, err := node.Execute(ctx, command, opts)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				nodeErrs = append(nodeErrs, NodeError{Node: node.Name(), Err: err})

				return nil
			}

			results[node.Name()] = result

			return nil
		})
	}

	g.executor.ExecuteAll(ctx, tasks...)

	return results, newAggregate("execute", nodeErrs)
}
