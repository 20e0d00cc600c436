package v1alpha1

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// FromYAML parses a topology document, verifying its kind and apiVersion.
func FromYAML(data []byte) (*Topology, error) {
	var topology Topology

	err := yaml.UnmarshalStrict(data, &topology)
	if err != nil {
		return nil, fmt.Errorf("failed to parse topology: %w", err)
	}

	if topology.Kind != Kind || topology.APIVersion != APIVersion {
		return nil, fmt.Errorf(
			"%w: got kind %q apiVersion %q",
			ErrWrongKind, topology.Kind, topology.APIVersion,
		)
	}

	return &topology, nil
}

// ToYAML renders the topology as a YAML document.
func (t *Topology) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal topology: %w", err)
	}

	return data, nil
}
