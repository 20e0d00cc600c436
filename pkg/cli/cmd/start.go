package cmd

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	v1alpha1 "github.com/flotilla-dev/flotilla/pkg/apis/topology/v1alpha1"
	"github.com/flotilla-dev/flotilla/pkg/cli/parallel"
	"github.com/flotilla-dev/flotilla/pkg/io/configmanager"
	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/svc/provisioner/cluster"
	"github.com/flotilla-dev/flotilla/pkg/utils/timer"
)

type startFlags struct {
	clusterName     string
	network         string
	namespace       string
	registry        string
	operatingSystem string
	alwaysPull      bool
}

// NewStartCmd builds the command that starts a cluster from a topology file.
func NewStartCmd(injector do.Injector) *cobra.Command {
	var flags startFlags

	startCmd := &cobra.Command{
		Use:   "start <topology-file>",
		Short: "Start a cluster from a topology descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, args[0], flags, injector)
		},
	}

	startCmd.Flags().StringVar(&flags.clusterName, "cluster-name", "",
		"override the topology's cluster name")
	startCmd.Flags().StringVar(&flags.network, "network", "",
		"override the topology's network name")
	startCmd.Flags().StringVar(&flags.namespace, "namespace", "",
		"override the topology's image namespace")
	startCmd.Flags().StringVar(&flags.registry, "registry", "",
		"override the topology's image registry")
	startCmd.Flags().StringVar(&flags.operatingSystem, "operating-system", "",
		"override the topology's operating-system tag")
	startCmd.Flags().BoolVar(&flags.alwaysPull, "always-pull", false,
		"pull images even when they are present locally")

	return startCmd
}

func runStart(
	cmd *cobra.Command,
	topologyPath string,
	flags startFlags,
	injector do.Injector,
) error {
	topology, err := configmanager.Load(topologyPath)
	if err != nil {
		return err
	}

	applyFlagOverrides(&topology.Spec, flags, cmd.Flags())

	cli, err := do.Invoke[runtime.Client](injector)
	if err != nil {
		return fmt.Errorf("failed to connect to container runtime: %w", err)
	}

	tmr := do.MustInvoke[timer.Timer](injector)

	// Nodes start in parallel; serialize their output.
	writer := parallel.NewSyncWriter(cmd.OutOrStdout())

	clstr, err := cluster.NewFromTopology(cli, writer, topology, tmr)
	if err != nil {
		return err
	}

	return clstr.Start(cmd.Context())
}

// applyFlagOverrides lets explicitly set flags win over both the topology
// file and environment overrides.
func applyFlagOverrides(
	spec *v1alpha1.TopologySpec,
	flags startFlags,
	flagSet *pflag.FlagSet,
) {
	if flagSet.Changed("cluster-name") {
		spec.Name = flags.clusterName
	}

	if flagSet.Changed("network") {
		spec.Network = flags.network
	}

	if flagSet.Changed("namespace") {
		spec.Namespace = flags.namespace
	}

	if flagSet.Changed("registry") {
		spec.Registry = flags.registry
	}

	if flagSet.Changed("operating-system") {
		spec.OperatingSystem = flags.operatingSystem
	}

	if flagSet.Changed("always-pull") {
		spec.AlwaysPull = flags.alwaysPull
	}
}
