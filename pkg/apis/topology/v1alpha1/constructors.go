package v1alpha1

import metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

// Option mutates a Topology during construction.
type Option func(*Topology)

// NewTopology creates a topology with the given cluster name and options.
func NewTopology(name string, options ...Option) *Topology {
	topology := &Topology{
		TypeMeta: metav1.TypeMeta{
			APIVersion: APIVersion,
			Kind:       Kind,
		},
		Spec: TopologySpec{
			Name:    name,
			Network: DefaultNetworkName,
		},
	}

	for _, option := range options {
		option(topology)
	}

	return topology
}

// WithNetwork sets the cluster network name.
func WithNetwork(network string) Option {
	return func(t *Topology) { t.Spec.Network = network }
}

// WithNamespace sets the image namespace.
func WithNamespace(namespace string) Option {
	return func(t *Topology) { t.Spec.Namespace = namespace }
}

// WithRegistry sets the image registry host.
func WithRegistry(registry string) Option {
	return func(t *Topology) { t.Spec.Registry = registry }
}

// WithOperatingSystem sets the operating-system tag variant.
func WithOperatingSystem(operatingSystem string) Option {
	return func(t *Topology) { t.Spec.OperatingSystem = operatingSystem }
}

// WithAlwaysPull forces image pulls even when images are present locally.
func WithAlwaysPull() Option {
	return func(t *Topology) { t.Spec.AlwaysPull = true }
}

// WithNodeGroup appends a node group to the topology.
func WithNodeGroup(group NodeGroupSpec) Option {
	return func(t *Topology) { t.Spec.NodeGroups = append(t.Spec.NodeGroups, group) }
}
