package cmd_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"os"
	"testing"
	"time"

	fcolor "github.com/fatih/color"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	dockernetwork "github.com/docker/docker/api/types/network"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotilla-dev/flotilla/pkg/cli/cmd"
	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/runtime/fake"
	"github.com/flotilla-dev/flotilla/pkg/utils/timer"
)

func TestMain(m *testing.M) {
	fcolor.NoColor = true

	os.Exit(m.Run())
}

func testInjector(cli runtime.Client) do.Injector {
	injector := do.New()

	do.ProvideValue[runtime.Client](injector, cli)
	do.Provide(injector, func(do.Injector) (timer.Timer, error) {
		return timer.New(), nil
	})

	return injector
}

func executeCommand(t *testing.T, cli runtime.Client, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	rootCmd := cmd.NewRootCmd(testInjector(cli), "1.2.3", "abc1234", "2026-01-01")
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestRootCmdRegistersSubcommands(t *testing.T) {
	t.Parallel()

	rootCmd := cmd.NewRootCmd(testInjector(&fake.Client{}), "1.2.3", "abc1234", "2026-01-01")

	names := make(map[string]bool)
	for _, subCmd := range rootCmd.Commands() {
		names[subCmd.Name()] = true
	}

	for _, name := range []string{"start", "exec", "ps", "cp", "nuke"} {
		assert.True(t, names[name], "missing subcommand %q", name)
	}
}

func TestRootCmdVersion(t *testing.T) {
	t.Parallel()

	out, err := executeCommand(t, &fake.Client{}, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3 (commit abc1234, built 2026-01-01)")
}

func TestStartCmdMissingTopologyFile(t *testing.T) {
	t.Parallel()

	_, err := executeCommand(t, &fake.Client{}, "start", "/nonexistent/topology.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "topology")
}

func TestPsCmdRendersTable(t *testing.T) {
	t.Parallel()

	cli := &fake.Client{
		ContainerListFunc: func(_ context.Context, _ container.ListOptions) ([]container.Summary, error) {
			return []container.Summary{runningSummary("node-1.testnet", "demo", "primary")}, nil
		},
	}

	out, err := executeCommand(t, cli, "ps")

	require.NoError(t, err)
	assert.Contains(t, out, "CLUSTER")
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "node-1.testnet")
	assert.Contains(t, out, "flotilla/base:latest")
}

func TestPsCmdNoContainers(t *testing.T) {
	t.Parallel()

	out, err := executeCommand(t, &fake.Client{}, "ps")

	require.NoError(t, err)
	assert.Contains(t, out, "no flotilla-managed containers found")
}

func TestExecCmdRunsOnDiscoveredCluster(t *testing.T) {
	t.Parallel()

	cli := execFakeClient("hi from node\n", 0)

	out, err := executeCommand(t, cli, "exec", "demo", "cat", "/etc/hostname")

	require.NoError(t, err)
	assert.Contains(t, out, "hi from node")
	assert.Contains(t, out, "node-1.testnet: exit 0")
	assert.Equal(t, 1, cli.CallCount("ContainerExecCreate"))
}

func TestExecCmdUnknownCluster(t *testing.T) {
	t.Parallel()

	_, err := executeCommand(t, &fake.Client{}, "exec", "ghost", "true")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestCpCmdRejectsHostOnlyPaths(t *testing.T) {
	t.Parallel()

	_, err := executeCommand(t, &fake.Client{}, "cp", "/tmp/a", "/tmp/b")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "node:path")
}

func TestNukeCmdRequiresNamesOrAll(t *testing.T) {
	t.Parallel()

	_, err := executeCommand(t, &fake.Client{}, "nuke")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--all")
}

func TestNukeCmdAllWithNoClusters(t *testing.T) {
	t.Parallel()

	out, err := executeCommand(t, &fake.Client{}, "nuke", "--all")

	require.NoError(t, err)
	assert.Contains(t, out, "no flotilla-managed clusters found")
}

func runningSummary(name, clusterName, groupName string) container.Summary {
	return container.Summary{
		ID:     "ctr-" + name,
		Names:  []string{"/" + name},
		Image:  "flotilla/base:latest",
		State:  "running",
		Status: "Up 5 minutes",
		Labels: map[string]string{
			"io.flotilla.cluster":    clusterName,
			"io.flotilla.node-group": groupName,
		},
		NetworkSettings: &container.NetworkSettingsSummary{
			Networks: map[string]*dockernetwork.EndpointSettings{
				"testnet": {IPAddress: "172.18.0.5"},
			},
		},
	}
}

// execFakeClient serves a one-node "demo" cluster whose execs always produce
// the given stdout and exit code.
func execFakeClient(stdout string, exitCode int) *fake.Client {
	return &fake.Client{
		ContainerListFunc: func(_ context.Context, options container.ListOptions) ([]container.Summary, error) {
			labelFilters := options.Filters.Get("label")
			if len(labelFilters) == 1 && labelFilters[0] == "io.flotilla.cluster=demo" {
				return []container.Summary{runningSummary("node-1.testnet", "demo", "primary")}, nil
			}

			return nil, nil
		},
		ContainerExecCreateFunc: func(_ context.Context, _ string, _ container.ExecOptions) (container.ExecCreateResponse, error) {
			return container.ExecCreateResponse{ID: "exec-1"}, nil
		},
		ContainerExecAttachFunc: func(_ context.Context, _ string, _ container.ExecStartOptions) (types.HijackedResponse, error) {
			return types.HijackedResponse{
				Conn:   nopConn{},
				Reader: bufio.NewReader(bytes.NewReader(muxStdout(stdout))),
			}, nil
		},
		ContainerExecInspectFunc: func(_ context.Context, execID string) (container.ExecInspect, error) {
			return container.ExecInspect{ExecID: execID, ExitCode: exitCode}, nil
		},
	}
}

// muxStdout wraps payload in the stream-multiplexing frame the runtime uses
// for non-TTY attach streams.
func muxStdout(payload string) []byte {
	frame := make([]byte, 8+len(payload))
	frame[0] = 1 // stdout
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[8:], payload)

	return frame
}

type nopConn struct{}

func (nopConn) Read(_ []byte) (int, error)         { return 0, nil }
func (nopConn) Write(b []byte) (int, error)        { return len(b), nil }
func (nopConn) Close() error                       { return nil }
func (nopConn) LocalAddr() net.Addr                { return nil }
func (nopConn) RemoteAddr() net.Addr               { return nil }
func (nopConn) SetDeadline(_ time.Time) error      { return nil }
func (nopConn) SetReadDeadline(_ time.Time) error  { return nil }
func (nopConn) SetWriteDeadline(_ time.Time) error { return nil }
