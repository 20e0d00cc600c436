package cluster_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotilla-dev/flotilla/pkg/svc/provisioner/cluster"
)

func TestAggregateErrorNamesEveryNode(t *testing.T) {
	t.Parallel()

	aggregate := &cluster.AggregateError{
		Op: "start",
		Nodes: []cluster.NodeError{
			{Node: "node-1", Err: cluster.ErrNodeNotRunning},
			{Node: "node-3", Err: cluster.ErrExecFailed},
		},
	}

	message := aggregate.Error()

	assert.Contains(t, message, "start failed on 2 node(s)")
	assert.Contains(t, message, "node-1")
	assert.Contains(t, message, "node-3")
}

func TestAggregateErrorUnwrapsNodeErrors(t *testing.T) {
	t.Parallel()

	aggregate := &cluster.AggregateError{
		Op: "teardown",
		Nodes: []cluster.NodeError{
			{Node: "node-1", Err: cluster.ErrNodeNotStopped},
		},
	}

	require.ErrorIs(t, aggregate, cluster.ErrNodeNotStopped)

	var nodeErr cluster.NodeError
	require.True(t, errors.As(aggregate, &nodeErr))
	assert.Equal(t, "node-1", nodeErr.Node)
}

func TestResultPending(t *testing.T) {
	t.Parallel()

	assert.True(t, cluster.Result{}.Pending())
	assert.False(t, cluster.Result{}.Succeeded())

	zero := 0
	assert.False(t, cluster.Result{ExitCode: &zero}.Pending())
	assert.True(t, cluster.Result{ExitCode: &zero}.Succeeded())

	seven := 7
	assert.False(t, cluster.Result{ExitCode: &seven}.Succeeded())
}
