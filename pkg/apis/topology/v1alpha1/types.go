// Package v1alpha1 defines the topology descriptor consumed when building
// container-backed clusters.
package v1alpha1

import (
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// APIGroup is the API group of topology documents.
	APIGroup = "flotilla.dev"
	// APIVersionV1Alpha1 is the version of this API.
	APIVersionV1Alpha1 = "v1alpha1"
	// Kind is the kind of topology documents.
	Kind = "Topology"
	// APIVersion is the full apiVersion string of topology documents.
	APIVersion = APIGroup + "/" + APIVersionV1Alpha1
)

// Topology declares the node groups, images and cluster-level defaults used
// to bring up one cluster. A topology is immutable once a cluster has been
// built from it.
type Topology struct {
	metav1.TypeMeta `json:",inline"`

	// Spec is the desired shape of the cluster.
	Spec TopologySpec `json:"spec,omitempty"`
}

// TopologySpec is the desired shape of a cluster.
type TopologySpec struct {
	// Name is the cluster name. A random name is generated when empty.
	Name string `json:"name,omitempty"`

	// Network is the name of the container network shared by every node.
	Network string `json:"network,omitempty"`

	// Namespace qualifies image references that carry no explicit namespace.
	// Required; there is no process-wide default.
	Namespace string `json:"namespace"`

	// Registry is the registry host prepended to unqualified image
	// references. Empty means the runtime's default registry.
	Registry string `json:"registry,omitempty"`

	// OperatingSystem selects the image tag variant for images that carry no
	// explicit tag.
	OperatingSystem string `json:"operatingSystem,omitempty"`

	// AlwaysPull forces image pulls even when the image is present locally.
	AlwaysPull bool `json:"alwaysPull,omitempty"`

	// NodeGroups lists the node groups of the cluster, in start order.
	NodeGroups []NodeGroupSpec `json:"nodeGroups,omitempty"`
}

// NodeGroupSpec describes a named set of identically configured nodes.
type NodeGroupSpec struct {
	// Name identifies the group within the topology (for example "primary").
	Name string `json:"name"`

	// Nodes lists the node names of the group, in order.
	Nodes []string `json:"nodes"`

	// Image is the container image every node in the group runs.
	Image string `json:"image"`

	// Ports lists port specs in "host:container/proto" or bare
	// "container/proto" form. Bare specs get a runtime-assigned host port.
	Ports []string `json:"ports,omitempty"`

	// Volumes lists host paths mounted into every node of the group.
	Volumes []VolumeMount `json:"volumes,omitempty"`

	// Devices lists host device paths exposed to every node of the group.
	Devices []string `json:"devices,omitempty"`

	// Env carries KEY=value pairs set in every node's container.
	Env []string `json:"env,omitempty"`
}

// VolumeMount binds a host path into a node container.
type VolumeMount struct {
	// HostPath is the absolute path on the host.
	HostPath string `json:"hostPath"`

	// ContainerPath is the absolute mount path inside the container.
	ContainerPath string `json:"containerPath"`

	// ReadOnly mounts the path read-only.
	ReadOnly bool `json:"readOnly,omitempty"`
}

// ResolveImage qualifies an image reference with the topology's registry,
// namespace and operating-system tag where the reference does not carry its
// own. Fully qualified references pass through unchanged.
func (s TopologySpec) ResolveImage(image string) string {
	ref := image
	if s.Namespace != "" && !strings.Contains(ref, "/") {
		ref = s.Namespace + "/" + ref
	}

	if s.Registry != "" && strings.Count(ref, "/") < 2 {
		ref = strings.TrimSuffix(s.Registry, "/") + "/" + ref
	}

	if s.OperatingSystem != "" && !strings.Contains(ref, ":") {
		ref += ":" + s.OperatingSystem
	}

	return ref
}

// NodeNames returns the names of every node in the topology, in group order.
func (s TopologySpec) NodeNames() []string {
	var names []string
	for _, group := range s.NodeGroups {
		names = append(names, group.Nodes...)
	}

	return names
}
