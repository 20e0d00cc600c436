package cmd

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/svc/provisioner/cluster"
	"github.com/flotilla-dev/flotilla/pkg/utils/notify"
)

var errNoNodeSide = errors.New("at least one of source and destination must be node:path")

// NewCpCmd builds the command that copies files between the host and nodes.
func NewCpCmd(injector do.Injector) *cobra.Command {
	return &cobra.Command{
		Use:   "cp <src> <dst>",
		Short: "Copy files between the host and cluster nodes",
		Long: `Copy files or directories between the host and cluster nodes. Node paths
use the form <node>.<network>:<path>, for example node-1.cluster:/etc/hosts.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCp(cmd, args[0], args[1], injector)
		},
	}
}

// endpoint is one side of a copy: a host path, or a path on a named node.
type endpoint struct {
	node string
	path string
}

func (e endpoint) onNode() bool {
	return e.node != ""
}

// parseEndpoint splits "node-1.cluster:/path" into node and path. A leading
// "/" before the colon means the argument is a plain host path.
func parseEndpoint(arg string) endpoint {
	node, nodePath, found := strings.Cut(arg, ":")
	if !found || strings.HasPrefix(node, "/") || strings.HasPrefix(node, ".") {
		return endpoint{path: arg}
	}

	return endpoint{node: node, path: nodePath}
}

func runCp(cmd *cobra.Command, srcArg, dstArg string, injector do.Injector) error {
	src := parseEndpoint(srcArg)
	dst := parseEndpoint(dstArg)

	if !src.onNode() && !dst.onNode() {
		return errNoNodeSide
	}

	cli, err := do.Invoke[runtime.Client](injector)
	if err != nil {
		return fmt.Errorf("failed to connect to container runtime: %w", err)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case src.onNode() && dst.onNode():
		err = copyNodeToNode(cmd, cli, src, dst)
	case src.onNode():
		var node *cluster.Node

		node, err = cluster.FindNode(ctx, cli, out, src.node)
		if err == nil {
			err = node.GetFile(ctx, src.path, dst.path)
		}
	default:
		var node *cluster.Node

		node, err = cluster.FindNode(ctx, cli, out, dst.node)
		if err == nil {
			err = node.PutFile(ctx, src.path, dst.path)
		}
	}

	if err != nil {
		return err
	}

	notify.Successf(out, "copied %s to %s", srcArg, dstArg)

	return nil
}

// copyNodeToNode stages the tree on the host because the runtime offers no
// direct container-to-container transfer.
func copyNodeToNode(
	cmd *cobra.Command,
	cli runtime.Client,
	src, dst endpoint,
) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	srcNode, err := cluster.FindNode(ctx, cli, out, src.node)
	if err != nil {
		return err
	}

	dstNode, err := cluster.FindNode(ctx, cli, out, dst.node)
	if err != nil {
		return err
	}

	stageDir, err := os.MkdirTemp("", "flotilla-cp-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	defer func() { _ = os.RemoveAll(stageDir) }()

	staged := filepath.Join(stageDir, path.Base(src.path))

	err = srcNode.GetFile(ctx, src.path, staged)
	if err != nil {
		return err
	}

	return dstNode.PutFile(ctx, staged, dst.path)
}
