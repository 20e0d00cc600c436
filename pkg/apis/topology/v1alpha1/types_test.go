package v1alpha1_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	v1alpha1 "github.com/flotilla-dev/flotilla/pkg/apis/topology/v1alpha1"
)

func TestResolveImage(t *testing.T) {
	t.Parallel()

	spec := v1alpha1.TopologySpec{
		Namespace:       "flotilla",
		Registry:        "registry.example.com",
		OperatingSystem: "noble",
	}

	tests := []struct {
		name  string
		image string
		want  string
	}{
		{
			name:  "bare image gets namespace registry and tag",
			image: "base",
			want:  "registry.example.com/flotilla/base:noble",
		},
		{
			name:  "namespaced image gets registry and tag",
			image: "other/base",
			want:  "registry.example.com/other/base:noble",
		},
		{
			name:  "fully qualified image passes through",
			image: "quay.io/other/base:jammy",
			want:  "quay.io/other/base:jammy",
		},
		{
			name:  "tagged image keeps its tag",
			image: "base:jammy",
			want:  "registry.example.com/flotilla/base:jammy",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want, spec.ResolveImage(testCase.image))
		})
	}
}

func TestResolveImageWithoutDefaults(t *testing.T) {
	t.Parallel()

	spec := v1alpha1.TopologySpec{Namespace: "flotilla"}

	assert.Equal(t, "flotilla/base", spec.ResolveImage("base"))
}

func TestNewTopologyDefaults(t *testing.T) {
	t.Parallel()

	topology := v1alpha1.NewTopology("demo",
		v1alpha1.WithNamespace("flotilla"),
		v1alpha1.WithNodeGroup(v1alpha1.NodeGroupSpec{
			Name:  "primary",
			Nodes: []string{"node-1"},
			Image: "base",
		}),
	)

	assert.Equal(t, v1alpha1.Kind, topology.Kind)
	assert.Equal(t, v1alpha1.APIVersion, topology.APIVersion)
	assert.Equal(t, "demo", topology.Spec.Name)
	assert.Equal(t, v1alpha1.DefaultNetworkName, topology.Spec.Network)
	assert.Equal(t, []string{"node-1"}, topology.Spec.NodeNames())
}

func TestGenerateClusterName(t *testing.T) {
	t.Parallel()

	name := v1alpha1.GenerateClusterName()

	assert.Regexp(t, `^[a-z]+_[a-z]+$`, name)
}
