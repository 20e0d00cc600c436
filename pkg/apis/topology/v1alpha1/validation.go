package v1alpha1

import (
	"fmt"
	"strings"

	"github.com/docker/go-connections/nat"
)

// Validate checks the topology for structural problems that would make the
// resulting cluster ambiguous or impossible to build.
func (t *Topology) Validate() error {
	return t.Spec.Validate()
}

// Validate checks the topology spec for structural problems.
func (s TopologySpec) Validate() error {
	if len(s.NodeGroups) == 0 {
		return ErrNoNodeGroups
	}

	if s.Namespace == "" {
		return ErrMissingNamespace
	}

	groupNames := make(map[string]struct{}, len(s.NodeGroups))
	nodeNames := make(map[string]struct{})

	for _, group := range s.NodeGroups {
		if err := group.Validate(); err != nil {
			return err
		}

		if _, seen := groupNames[group.Name]; seen {
			return fmt.Errorf("%w: %s", ErrDuplicateGroupName, group.Name)
		}

		groupNames[group.Name] = struct{}{}

		for _, node := range group.Nodes {
			if _, seen := nodeNames[node]; seen {
				return fmt.Errorf("%w: %s", ErrDuplicateNodeName, node)
			}

			nodeNames[node] = struct{}{}
		}
	}

	return nil
}

// Validate checks a single node group for structural problems.
func (g NodeGroupSpec) Validate() error {
	if g.Name == "" {
		return ErrMissingGroupName
	}

	if g.Image == "" {
		return fmt.Errorf("%w: group %s", ErrMissingImage, g.Name)
	}

	if len(g.Nodes) == 0 {
		return fmt.Errorf("%w: group %s", ErrNoNodes, g.Name)
	}

	if _, _, err := nat.ParsePortSpecs(g.Ports); err != nil {
		return fmt.Errorf("%w: group %s: %w", ErrInvalidPortSpec, g.Name, err)
	}

	for _, volume := range g.Volumes {
		if !strings.HasPrefix(volume.HostPath, "/") || !strings.HasPrefix(volume.ContainerPath, "/") {
			return fmt.Errorf(
				"%w: group %s: %s:%s",
				ErrInvalidVolume, g.Name, volume.HostPath, volume.ContainerPath,
			)
		}
	}

	return nil
}
