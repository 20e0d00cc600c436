package cmd

import (
	"fmt"
	"strings"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/flotilla-dev/flotilla/pkg/cli/parallel"
	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/svc/provisioner/cluster"
	"github.com/flotilla-dev/flotilla/pkg/utils/notify"
)

type execFlags struct {
	user   string
	quiet  bool
	detach bool
}

// NewExecCmd builds the command that runs a shell command on every node of a
// cluster.
func NewExecCmd(injector do.Injector) *cobra.Command {
	var flags execFlags

	execCmd := &cobra.Command{
		Use:   "exec <cluster> <command>...",
		Short: "Run a command on every node of a cluster",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args[0], strings.Join(args[1:], " "), flags, injector)
		},
	}

	execCmd.Flags().StringVar(&flags.user, "user", "", "user to run the command as")
	execCmd.Flags().BoolVar(&flags.quiet, "quiet", false,
		"capture output instead of streaming it")
	execCmd.Flags().BoolVar(&flags.detach, "detach", false,
		"start the command without waiting for it to finish")

	return execCmd
}

func runExec(
	cmd *cobra.Command,
	clusterName, command string,
	flags execFlags,
	injector do.Injector,
) error {
	cli, err := do.Invoke[runtime.Client](injector)
	if err != nil {
		return fmt.Errorf("failed to connect to container runtime: %w", err)
	}

	writer := parallel.NewSyncWriter(cmd.OutOrStdout())

	clstr, err := cluster.Discover(cmd.Context(), cli, writer, clusterName)
	if err != nil {
		return err
	}

	opts := cluster.ExecOptions{User: flags.user, Quiet: flags.quiet, Detach: flags.detach}

	results, execErr := clstr.Execute(cmd.Context(), command, opts)

	// Report per node in topology order; failures are in execErr.
	for _, group := range clstr.NodeGroups() {
		for _, node := range group.Nodes() {
			result, ok := results[group.Name()][node.Name()]
			if !ok {
				continue
			}

			if result.Pending() {
				notify.Activityf(writer, "%s: detached", node.FQDN())

				continue
			}

			if flags.quiet && result.Output != "" {
				fmt.Fprint(cmd.OutOrStdout(), result.Output)
			}

			notify.Infof(writer, "%s: exit %d", node.FQDN(), *result.ExitCode)
		}
	}

	return execErr
}
