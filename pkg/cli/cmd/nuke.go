package cmd

import (
	"errors"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/flotilla-dev/flotilla/pkg/cli/parallel"
	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/svc/provisioner/cluster"
	"github.com/flotilla-dev/flotilla/pkg/utils/notify"
)

var errNothingToNuke = errors.New("name at least one cluster or pass --all")

// NewNukeCmd builds the command that tears clusters down by label.
func NewNukeCmd(injector do.Injector) *cobra.Command {
	var all bool

	nukeCmd := &cobra.Command{
		Use:   "nuke [cluster]...",
		Short: "Tear down clusters, their containers and unused networks",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNuke(cmd, args, all, injector)
		},
	}

	nukeCmd.Flags().BoolVar(&all, "all", false, "tear down every flotilla-managed cluster")

	return nukeCmd
}

func runNuke(cmd *cobra.Command, names []string, all bool, injector do.Injector) error {
	cli, err := do.Invoke[runtime.Client](injector)
	if err != nil {
		return fmt.Errorf("failed to connect to container runtime: %w", err)
	}

	if all {
		names, err = cluster.ListClusters(cmd.Context(), cli)
		if err != nil {
			return err
		}

		if len(names) == 0 {
			notify.Infof(cmd.OutOrStdout(), "no flotilla-managed clusters found")

			return nil
		}
	}

	if len(names) == 0 {
		return errNothingToNuke
	}

	writer := parallel.NewSyncWriter(cmd.OutOrStdout())

	var errs []error

	for _, name := range names {
		clstr, discoverErr := cluster.Discover(cmd.Context(), cli, writer, name)
		if discoverErr != nil {
			errs = append(errs, discoverErr)

			continue
		}

		teardownErr := clstr.Teardown(cmd.Context())
		if teardownErr != nil {
			errs = append(errs, teardownErr)
		}
	}

	return errors.Join(errs...)
}
