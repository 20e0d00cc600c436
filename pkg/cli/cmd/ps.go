package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/svc/provisioner/cluster"
	"github.com/flotilla-dev/flotilla/pkg/utils/notify"
)

// NewPsCmd builds the command that lists flotilla-managed containers.
func NewPsCmd(injector do.Injector) *cobra.Command {
	return &cobra.Command{
		Use:   "ps [cluster]",
		Short: "List flotilla-managed containers, optionally for one cluster",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clusterName := ""
			if len(args) == 1 {
				clusterName = args[0]
			}

			return runPs(cmd, clusterName, injector)
		},
	}
}

func runPs(cmd *cobra.Command, clusterName string, injector do.Injector) error {
	cli, err := do.Invoke[runtime.Client](injector)
	if err != nil {
		return fmt.Errorf("failed to connect to container runtime: %w", err)
	}

	containers, err := cluster.ListContainers(cmd.Context(), cli, clusterName)
	if err != nil {
		return err
	}

	if len(containers) == 0 {
		notify.Infof(cmd.OutOrStdout(), "no flotilla-managed containers found")

		return nil
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)

	fmt.Fprintln(writer, "CLUSTER\tNODE GROUP\tNAME\tSTATUS\tIMAGE")

	for _, summary := range containers {
		name := ""
		if len(summary.Names) > 0 {
			name = strings.TrimPrefix(summary.Names[0], "/")
		}

		fmt.Fprintf(
			writer, "%s\t%s\t%s\t%s\t%s\n",
			summary.Labels[cluster.LabelCluster],
			summary.Labels[cluster.LabelNodeGroup],
			name,
			summary.Status,
			summary.Image,
		)
	}

	err = writer.Flush()
	if err != nil {
		return fmt.Errorf("failed to render container table: %w", err)
	}

	return nil
}
