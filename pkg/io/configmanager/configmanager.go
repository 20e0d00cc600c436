// Package configmanager loads topology descriptors from disk and applies
// FLOTILLA_-prefixed environment overrides, so pipelines can retarget a
// checked-in topology without editing it.
package configmanager

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	v1alpha1 "github.com/flotilla-dev/flotilla/pkg/apis/topology/v1alpha1"
)

const envPrefix = "FLOTILLA"

// Load reads and parses the topology at path, then applies environment
// overrides. The result is not validated; cluster construction validates.
func Load(path string) (*v1alpha1.Topology, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is the operator's own argument.
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}

	topology, err := v1alpha1.FromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	applyEnvOverrides(&topology.Spec, newEnv())

	return topology, nil
}

func newEnv() *viper.Viper {
	env := viper.New()
	env.SetEnvPrefix(envPrefix)
	env.AutomaticEnv()

	return env
}

// applyEnvOverrides lets FLOTILLA_CLUSTER_NAME, FLOTILLA_NETWORK,
// FLOTILLA_NAMESPACE, FLOTILLA_REGISTRY, FLOTILLA_OPERATING_SYSTEM and
// FLOTILLA_ALWAYS_PULL override the corresponding topology fields.
func applyEnvOverrides(spec *v1alpha1.TopologySpec, env *viper.Viper) {
	if name := env.GetString("cluster_name"); name != "" {
		spec.Name = name
	}

	if network := env.GetString("network"); network != "" {
		spec.Network = network
	}

	if namespace := env.GetString("namespace"); namespace != "" {
		spec.Namespace = namespace
	}

	if registry := env.GetString("registry"); registry != "" {
		spec.Registry = registry
	}

	if operatingSystem := env.GetString("operating_system"); operatingSystem != "" {
		spec.OperatingSystem = operatingSystem
	}

	// The override can only force pulls on, never suppress what the topology
	// asks for.
	if env.GetBool("always_pull") {
		spec.AlwaysPull = true
	}
}
