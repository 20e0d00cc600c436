package v1alpha1_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1alpha1 "github.com/flotilla-dev/flotilla/pkg/apis/topology/v1alpha1"
)

const topologyYAML = `apiVersion: flotilla.dev/v1alpha1
kind: Topology
spec:
  name: demo
  network: testnet
  namespace: flotilla
  nodeGroups:
    - name: primary
      nodes: [node-1]
      image: base
      ports: ["8080:80/tcp"]
    - name: secondary
      nodes: [node-2, node-3]
      image: base
`

func TestFromYAML(t *testing.T) {
	t.Parallel()

	topology, err := v1alpha1.FromYAML([]byte(topologyYAML))

	require.NoError(t, err)
	assert.Equal(t, "demo", topology.Spec.Name)
	assert.Equal(t, "testnet", topology.Spec.Network)
	require.Len(t, topology.Spec.NodeGroups, 2)
	assert.Equal(t, []string{"node-2", "node-3"}, topology.Spec.NodeGroups[1].Nodes)
	assert.NoError(t, topology.Validate())
}

func TestFromYAMLRejectsWrongKind(t *testing.T) {
	t.Parallel()

	_, err := v1alpha1.FromYAML([]byte("apiVersion: v1\nkind: Pod\n"))

	assert.ErrorIs(t, err, v1alpha1.ErrWrongKind)
}

func TestFromYAMLRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := v1alpha1.FromYAML([]byte("{not yaml"))

	assert.Error(t, err)
}

func TestToYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	original := v1alpha1.NewTopology("demo",
		v1alpha1.WithNamespace("flotilla"),
		v1alpha1.WithRegistry("registry.example.com"),
		v1alpha1.WithNodeGroup(v1alpha1.NodeGroupSpec{
			Name:  "primary",
			Nodes: []string{"node-1"},
			Image: "base",
		}),
	)

	data, err := original.ToYAML()
	require.NoError(t, err)

	parsed, err := v1alpha1.FromYAML(data)
	require.NoError(t, err)

	assert.Equal(t, original, parsed)
}
