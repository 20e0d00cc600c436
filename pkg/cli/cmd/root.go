// Package cmd assembles the flotilla command tree. Commands are thin
// presentation over the cluster model: they parse arguments, resolve shared
// dependencies and print, nothing more.
package cmd

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the root command with every subcommand attached.
func NewRootCmd(injector do.Injector, version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flotilla",
		Short: "Provision and tear down container-backed clusters",
		Long: `Flotilla provisions multi-node, container-backed clusters from declarative
topology descriptors and tears them down deterministically.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		NewStartCmd(injector),
		NewExecCmd(injector),
		NewPsCmd(injector),
		NewCpCmd(injector),
		NewNukeCmd(injector),
	)

	return rootCmd
}

// Execute runs the command tree.
func Execute(rootCmd *cobra.Command) error {
	err := rootCmd.Execute()
	if err != nil {
		return fmt.Errorf("command failed: %w", err)
	}

	return nil
}
